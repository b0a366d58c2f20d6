package main

import "funidl/cmd"

func main() {
	cmd.Execute()
}
