package main

import "github.com/rechandler/gt3-ai-coaching-sub001/cmd"

func main() {
	cmd.Execute()
}
