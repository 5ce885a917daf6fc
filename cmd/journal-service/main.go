package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/journalservice"
)

func main() {
	if err := journalservice.Run(); err != nil {
		log.Error().Err(err).Msg("journal-service exited with error")
		os.Exit(1)
	}
}
