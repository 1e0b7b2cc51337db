package main

import (
	"ocm.software/open-component-model/managerproxy/cmd"
)

func main() {
	cmd.Execute()
}
