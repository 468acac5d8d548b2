// The main package for the jobscraper executable.
package main

import "os"

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	os.Exit(execute())
}
