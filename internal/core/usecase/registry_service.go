package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atvirokodosprendimai/rostersync/internal/core/domain"
	"github.com/atvirokodosprendimai/rostersync/internal/core/ports"
)

// Settings keys owned by the registry.
const (
	settingDeviceID  = "device_id"
	settingIdentity  = "identity"
	settingRemoteURL = "remote_url"
	settingRemoteKey = "remote_key"
	settingMode      = "operation_mode"

	watermarkPrefix = "watermark/"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RegistryService is the process-wide identity and device registry, backed by
// the durable settings store. The device id is generated once per install and
// stamps every audit entry; the human identity is optional and never required
// for local CRUD.
type RegistryService struct {
	settings ports.SettingsRepository

	mu       sync.Mutex
	deviceID string
}

func NewRegistryService(settings ports.SettingsRepository) *RegistryService {
	return &RegistryService{settings: settings}
}

// DeviceID returns the stable install identifier, generating and persisting
// it on first access.
func (s *RegistryService) DeviceID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceID != "" {
		return s.deviceID, nil
	}

	id, err := s.settings.Get(ctx, settingDeviceID)
	switch {
	case err == nil:
		s.deviceID = id
		return id, nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return "", fmt.Errorf("load device id: %w", err)
	}

	id, err = newDeviceID()
	if err != nil {
		return "", err
	}
	if err := s.settings.Set(ctx, settingDeviceID, id); err != nil {
		return "", fmt.Errorf("persist device id: %w", err)
	}
	s.deviceID = id
	return id, nil
}

func newDeviceID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	var b strings.Builder
	b.WriteString("MOB-")
	for _, c := range buf {
		b.WriteByte(base36[int(c)%len(base36)])
	}
	return b.String(), nil
}

// Identity returns the configured human identity; ok is false when none is set.
func (s *RegistryService) Identity(ctx context.Context) (domain.Identity, bool, error) {
	raw, err := s.settings.Get(ctx, settingIdentity)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Identity{}, false, nil
	}
	if err != nil {
		return domain.Identity{}, false, fmt.Errorf("load identity: %w", err)
	}
	var id domain.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return domain.Identity{}, false, fmt.Errorf("decode identity: %w", err)
	}
	return id, !id.Zero(), nil
}

func (s *RegistryService) SetIdentity(ctx context.Context, identity domain.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return s.settings.Set(ctx, settingIdentity, string(raw))
}

// RemoteConfig returns the locally stored endpoint and key, either of which
// may be empty.
func (s *RegistryService) RemoteConfig(ctx context.Context) (url, key string, err error) {
	url, err = s.settings.Get(ctx, settingRemoteURL)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", "", fmt.Errorf("load remote url: %w", err)
	}
	key, err = s.settings.Get(ctx, settingRemoteKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", "", fmt.Errorf("load remote key: %w", err)
	}
	return url, key, nil
}

func (s *RegistryService) SetRemoteConfig(ctx context.Context, url, key string) error {
	if err := s.settings.Set(ctx, settingRemoteURL, url); err != nil {
		return err
	}
	return s.settings.Set(ctx, settingRemoteKey, key)
}

// Mode returns the operation mode, defaulting to PRODUCTION.
func (s *RegistryService) Mode(ctx context.Context) (string, error) {
	mode, err := s.settings.Get(ctx, settingMode)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ModeProduction, nil
	}
	if err != nil {
		return "", fmt.Errorf("load operation mode: %w", err)
	}
	return mode, nil
}

func (s *RegistryService) SetMode(ctx context.Context, mode string) error {
	if mode != domain.ModeProduction && mode != domain.ModeSandbox {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, mode)
	}
	return s.settings.Set(ctx, settingMode, mode)
}

// Watermark implements ports.WatermarkStore.
func (s *RegistryService) Watermark(ctx context.Context, c domain.Collection) (time.Time, bool, error) {
	raw, err := s.settings.Get(ctx, watermarkPrefix+string(c))
	if errors.Is(err, domain.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load %s watermark: %w", c, err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode %s watermark: %w", c, err)
	}
	return t, true, nil
}

func (s *RegistryService) SetWatermark(ctx context.Context, c domain.Collection, t time.Time) error {
	return s.settings.Set(ctx, watermarkPrefix+string(c), t.UTC().Format(time.RFC3339Nano))
}

// Clear wipes every setting, the registry's part of a factory reset.
func (s *RegistryService) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.deviceID = ""
	s.mu.Unlock()
	return s.settings.Clear(ctx)
}
