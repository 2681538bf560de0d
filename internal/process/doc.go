// Package process runs a single subprocess and drains its output.
//
// Session wraps os/exec for one run:
//   - stdout and stderr are pumped on their own goroutines, line by line
//   - lines end at \n, \r\n or a lone \r
//   - the process is reaped only after both streams reached EOF
//   - cancellation sends SIGINT to the process group, then SIGKILL after a timeout
//   - a non-zero exit is reported in the Result, not as an error
//
// Example usage:
//
//	session := process.NewSession("run-1", []string{"ffmpeg", "-i", "in.mp4", "out.mkv"}, handler, logger)
//	result, err := session.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	log.Printf("exited with %s", result.Exit)
package process
