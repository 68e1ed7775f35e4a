package main

import "lte-sms-manager/internal/cli"

func main() {
	cli.Execute()
}
