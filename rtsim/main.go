// Command rtsim simulates periodic real-time tasks under EDF and RM
// scheduling.
package main

import "github.com/sarchlab/rtsim/rtsim/cmd"

func main() {
	cmd.Execute()
}
