package port

import "os"

type stdio struct{}

// Stdio returns the port over stdin and stdout.
func Stdio() Port {
	return stdio{}
}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// Close is a no-op, stdio stays open for the process.
func (stdio) Close() error { return nil }
