package pkg

import (
	"github.com/rs/zerolog/log"

	"cuisine/pkg/io"
)

func printDataErrors(errors []io.DataError) {
	for _, err := range errors {
		log.Warn().Msgf("Row left out at line %d: %s", err.Line, err.Error())
	}
}
