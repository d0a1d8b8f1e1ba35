package service

import (
	"context"
	"errors"
	"strings"

	"github.com/steveyegge/boards/internal/eventbus"
	"github.com/steveyegge/boards/internal/storage"
	"github.com/steveyegge/boards/internal/types"
)

// DefaultProjectSetting holds the key or id of the project commands use when
// none is given. Deleting that project clears it.
const DefaultProjectSetting = "default.project"

var settingTables = []storage.Table{storage.TableSettings}

// GetSetting returns the value of key and whether it is set.
func (s *Service) GetSetting(ctx context.Context, key string) (string, bool, error) {
	setting, err := storage.Get[types.Setting](ctx, s.store, storage.TableSettings, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// SetSetting stores value under key, replacing any previous value.
func (s *Service) SetSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return types.NewValidationError("key", "setting key is required")
	}
	err := s.store.RunInTransaction(ctx, settingTables, func(tx storage.Transaction) error {
		return storage.Put(ctx, tx, storage.TableSettings, &types.Setting{Key: key, Value: value})
	})
	if err != nil {
		return err
	}
	s.notify(ctx, eventbus.Event{Type: eventbus.EventSettingChanged, EntityID: key, Summary: value}, settingTables)
	return nil
}

// DeleteSetting removes key. Deleting an unset key is not an error.
func (s *Service) DeleteSetting(ctx context.Context, key string) error {
	err := s.store.RunInTransaction(ctx, settingTables, func(tx storage.Transaction) error {
		return tx.Delete(ctx, storage.TableSettings, key)
	})
	if err != nil {
		return err
	}
	s.notify(ctx, eventbus.Event{Type: eventbus.EventSettingChanged, EntityID: key}, settingTables)
	return nil
}

// ListSettings returns every setting as a map.
func (s *Service) ListSettings(ctx context.Context) (map[string]string, error) {
	settings, err := storage.All[types.Setting](ctx, s.store, storage.TableSettings)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, st := range settings {
		out[st.Key] = st.Value
	}
	return out, nil
}
