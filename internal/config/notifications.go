package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cryptoedge/arbmon/internal/domain"
)

// LoadNotificationPolicy reads notifications.json fresh on every call — the
// gate re-reads it on every decision so operator edits take effect without a
// restart. A missing file yields the documented defaults rather than an
// error; a malformed present file is a config error.
func LoadNotificationPolicy(path string) (domain.NotificationPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.DefaultNotificationPolicy(), nil
		}
		return domain.NotificationPolicy{}, fmt.Errorf("%w: read notification policy: %v", domain.ErrConfigInvalid, err)
	}

	var policy domain.NotificationPolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return domain.NotificationPolicy{}, fmt.Errorf("%w: parse notification policy: %v", domain.ErrConfigInvalid, err)
	}

	return policy, nil
}

// FilePolicyStore adapts LoadNotificationPolicy to notify.PolicyStore,
// re-reading the file from disk on every Load call.
type FilePolicyStore struct {
	Path string
}

func (s FilePolicyStore) Load(ctx context.Context) (domain.NotificationPolicy, error) {
	return LoadNotificationPolicy(s.Path)
}
