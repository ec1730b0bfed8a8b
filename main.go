package main

import "github.com/shaharia-lab/mailadapter/cmd"

func main() {
	cmd.Execute()
}
