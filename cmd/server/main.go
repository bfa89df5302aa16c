package main

import "github.com/himalthapa1/EduConnect/internal/cli"

func main() {
	cli.Execute()
}
