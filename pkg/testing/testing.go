package testing

import (
	"os"
	"path"
	"runtime"
)

func init() {
	// tests run from the repository root so relative paths (logs/, sqlite files)
	// land in one place. usage, in some_test.go:
	//
	//   import (
	//     _ "liyu1981.xyz/speaker-energy-service/pkg/testing"
	//   )

	_, filename, _, _ := runtime.Caller(0)
	root := path.Join(path.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}
}
