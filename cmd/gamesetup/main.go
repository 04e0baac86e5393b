package main

import "github.com/bugdom/gamesetup/cmd/gamesetup/internal"

func main() {
	internal.Execute()
}
