// compileinfoprint is imported by the tkvseg binaries for the side effect of
// printing the compileinfo to os.StdErr
package compileinfoprint

import "github.com/carbocation/tkvseg/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
