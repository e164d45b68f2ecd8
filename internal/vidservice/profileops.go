package vidservice

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/starford/vidunpack/internal/profile"
)

// ProfileInfo pairs the profile with both locations of its file mirror.
type ProfileInfo struct {
	Profile profile.Memory `json:"profile"`
	RelPath string         `json:"profile_rel_path"`
	AbsPath string         `json:"profile_abs_path"`
}

// Profile loads the cross-project profile. A profile stored without a
// prompt gets one rebuilt from its counts on the way out.
func (s *Service) Profile(_ context.Context) (ProfileInfo, error) {
	mem, err := s.profiles.Load()
	if err != nil {
		return ProfileInfo{}, err
	}
	if strings.TrimSpace(mem.Prompt) == "" {
		mem.Prompt = profile.BuildPrompt(mem)
	}
	return s.profileInfo(mem), nil
}

// ResetProfile wipes the profile row and mirror and returns the fresh
// default.
func (s *Service) ResetProfile(_ context.Context) (ProfileInfo, error) {
	if err := s.profiles.Reset(); err != nil {
		return ProfileInfo{}, err
	}
	return s.profileInfo(profile.Memory{Version: 1}), nil
}

func (s *Service) profileInfo(mem profile.Memory) ProfileInfo {
	rel := s.profiles.RelPath()
	return ProfileInfo{
		Profile: mem,
		RelPath: rel,
		AbsPath: filepath.Join(s.fs.Root(), rel),
	}
}
