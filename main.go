package main

import "github.com/user/nessus-authcheck/cmd"

func main() {
	cmd.Execute()
}
