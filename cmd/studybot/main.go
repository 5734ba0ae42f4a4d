package main

import "github.com/skfonaraee/SWF-project/internal/app"

func main() {
	app.Run()
}
