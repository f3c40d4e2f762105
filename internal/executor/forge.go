package executor

import (
	"github.com/kofron/lattice/internal/forge"
	"github.com/kofron/lattice/internal/planner"
)

func forgeCreateRequest(s *planner.ForgeCreatePrStep) forge.CreatePRRequest {
	return forge.CreatePRRequest{
		Title: s.Title,
		Body:  s.Body,
		Head:  s.Branch,
		Base:  s.Base,
		Draft: s.Draft,
	}
}

func forgeUpdateRequest(s *planner.ForgeUpdatePrStep) forge.UpdatePRRequest {
	return forge.UpdatePRRequest{
		Title: s.Title,
		Body:  s.Body,
		Base:  s.Base,
	}
}
