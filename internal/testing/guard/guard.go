package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("AKADEMIA_TEST_MODE") == "" {
			_ = os.Setenv("AKADEMIA_TEST_MODE", "1")
		}
	})
}
