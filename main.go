package main

import (
	"demodesk/cmd"
)

func main() {
	cmd.Execute()
}
