// Command spvbuild compiles shader sources into SPIR-V artifacts.
package main

import (
	"shanhu.io/spvbuild/spvbuildbin"
)

func main() { spvbuildbin.Main() }
