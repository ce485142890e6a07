// Command cvlab runs the computer-vision coursework pipeline: filtering, edge
// detection, feature points and geometry over the standard sample images.
package main

import (
	"fmt"
	"io"
	"os"
)

const usage = `usage: cvlab <command> [flags]

commands:
  run            run all enabled stages and write SUMMARY_REPORT.txt
  stage <name>   run a single stage (filtering, edge, features, geometry)
  verify         check that every stage produced output
  test           run, then verify; exit status reports the outcome
  checkerboard   write a calibration checkerboard image

run "cvlab <command> -h" for the flags of a command.
`

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return runCommand(rest, stdout, stderr)
	case "stage":
		return stageCommand(rest, stdout, stderr)
	case "verify":
		return verifyCommand(rest, stdout, stderr)
	case "test":
		return testCommand(rest, stdout, stderr)
	case "checkerboard":
		return checkerboardCommand(rest, stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}
