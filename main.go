package main

import "github.com/gracechapel/church-backend/cmd"

func main() {
	cmd.Execute()
}
