package main

import "github.com/convocommerce/backend/cmd"

func main() {
	cmd.Execute()
}
