package main

import "github.com/oshokin/uadng/cmd/uadng/cmd"

func main() {
	cmd.Execute()
}
