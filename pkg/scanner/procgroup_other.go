//go:build !unix

package scanner

import "os/exec"

// setProcessGroup keeps exec's default of killing only the direct child.
func setProcessGroup(cmd *exec.Cmd) {}
