/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/farzad1132/hellobench/cmd"

func main() {
	cmd.Execute()
}
