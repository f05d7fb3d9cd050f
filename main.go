package main

import "github.com/jmehdipour/wa-bulk-sender/cmd"

func main() {
	cmd.Execute()
}
