package optic

import "github.com/scour-engine/scour/pkg/searcherr"

func parseErr(msg string) error {
	return searcherr.Parse("optic: %s", msg)
}
