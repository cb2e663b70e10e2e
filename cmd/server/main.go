package main

import (
	"os"

	"chatbridge/internal/app"
)

// @title           ChatBridge API
// @version         1.0
// @description     Gateway between a chat UI and a remote inference backend.
// @BasePath        /api
func main() {
	os.Exit(app.Run())
}
