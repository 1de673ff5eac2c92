// Command kadcrawl crawls case records and documents from the arbitration
// case archive.
package main

import "os"

func main() {
	os.Exit(execute(os.Args[1:]))
}
