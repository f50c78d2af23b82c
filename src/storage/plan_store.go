package storage

import (
	"encoding/json"
	"fmt"

	"github.com/username/zeninvest/backend/src/models"
)

// plansKeyPrefix namespaces each user's plan collection in the backing
// store. The key layout is part of the persisted contract: one JSON document
// holding the full collection per user id.
const plansKeyPrefix = "zen_invest_plans_"

// PlanStore owns the persisted plan collection of each user. Every mutating
// method rewrites the user's whole document; the collection is small and
// full overwrite keeps the store trivially consistent (last write wins).
type PlanStore struct {
	kv KVStore
}

func NewPlanStore(kv KVStore) *PlanStore {
	return &PlanStore{kv: kv}
}

func plansKey(userID string) string {
	return plansKeyPrefix + userID
}

// Load reads all plans saved under the user's partition. A user with no
// saved partition gets an empty collection, not an error.
func (s *PlanStore) Load(userID string) ([]models.Plan, error) {
	raw, ok, err := s.kv.Get(plansKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading plans for user %s: %w", userID, err)
	}
	if !ok {
		return []models.Plan{}, nil
	}
	var plans []models.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("decoding plans for user %s: %w", userID, err)
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	return plans, nil
}

// Save replaces the user's entire persisted collection with the given one.
func (s *PlanStore) Save(userID string, plans []models.Plan) error {
	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encoding plans for user %s: %w", userID, err)
	}
	if err := s.kv.Set(plansKey(userID), raw); err != nil {
		return fmt.Errorf("saving plans for user %s: %w", userID, err)
	}
	return nil
}

// Create prepends the plan to the user's collection and persists it.
// Newest-first is a display convention, not a stored invariant.
func (s *PlanStore) Create(userID string, plan models.Plan) error {
	plans, err := s.Load(userID)
	if err != nil {
		return err
	}
	plans = append([]models.Plan{plan}, plans...)
	return s.Save(userID, plans)
}

// Update applies the mutator to the plan with the given id and persists the
// collection. An unknown id is a no-op; the mutator may return an error to
// abort without writing.
func (s *PlanStore) Update(userID, planID string, mutate func(*models.Plan) error) error {
	plans, err := s.Load(userID)
	if err != nil {
		return err
	}
	found := false
	for i := range plans {
		if plans[i].ID == planID {
			if err := mutate(&plans[i]); err != nil {
				return err
			}
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	return s.Save(userID, plans)
}

// Delete removes the plan with the given id and persists the collection.
// All other plans are written back unchanged.
func (s *PlanStore) Delete(userID, planID string) error {
	plans, err := s.Load(userID)
	if err != nil {
		return err
	}
	kept := plans[:0]
	for _, p := range plans {
		if p.ID != planID {
			kept = append(kept, p)
		}
	}
	return s.Save(userID, kept)
}

// Get returns the plan with the given id, or ok=false when absent.
func (s *PlanStore) Get(userID, planID string) (models.Plan, bool, error) {
	plans, err := s.Load(userID)
	if err != nil {
		return models.Plan{}, false, err
	}
	for _, p := range plans {
		if p.ID == planID {
			return p, true, nil
		}
	}
	return models.Plan{}, false, nil
}
