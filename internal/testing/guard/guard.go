package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("TINDERO_TEST_MODE") == "" {
			_ = os.Setenv("TINDERO_TEST_MODE", "1")
		}
	})
}
