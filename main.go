package main

import "internboard/internal/app"

func main() {
	app.Run()
}
