package service

import (
	"context"
	"strings"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/catalog"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
)

// SearchLoads returns the best paying matches. A zero limit means
// catalog.DefaultSearchLimit.
func (s *Service) SearchLoads(ctx context.Context, req model.LoadSearchRequest) model.LoadSearchResponse {
	limit := req.Limit
	if limit == 0 {
		limit = catalog.DefaultSearchLimit
	}
	matches := s.catalog.Search(req.Origin, req.Destination, req.EquipmentType, limit)

	if callID := strings.TrimSpace(req.CallID); callID != "" {
		returned := make([]string, len(matches))
		for i, l := range matches {
			returned[i] = l.LoadID
		}
		s.state.AnnotateCall(callID, func(summary map[string]any) {
			summary["last_search"] = map[string]any{
				"origin":         req.Origin,
				"destination":    req.Destination,
				"equipment_type": req.EquipmentType,
				"returned":       returned,
			}
		})
	}
	return model.LoadSearchResponse{Matches: matches}
}

func (s *Service) GetLoad(ctx context.Context, loadID string) (model.Load, error) {
	return s.catalog.Get(loadID)
}
