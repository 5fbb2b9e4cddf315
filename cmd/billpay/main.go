package main

import "github.com/Pery99/billpay/cmd/billpay/cmd"

func main() {
	cmd.Execute()
}
