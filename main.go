package main

import (
	"gameplan-api/core/logger"
	"gameplan-api/core/server"
)

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
