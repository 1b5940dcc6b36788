// Command pmstereo computes a dense disparity map between a rectified
// stereo pair using PatchMatch Stereo.
package main

import "github.com/gostereo/pmstereo/pkg/cli"

func main() {
	cli.RunCLI()
}
