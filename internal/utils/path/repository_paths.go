package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

var tildeWithPathSeparatorPrefix = tildeSymbolConstant + string(os.PathSeparator)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// RepositoryPathResolver normalizes repository path arguments supplied on the command line.
type RepositoryPathResolver struct {
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewRepositoryPathResolver constructs a resolver using the operating system home directory lookup.
func NewRepositoryPathResolver() *RepositoryPathResolver {
	return NewRepositoryPathResolverWithProvider(os.UserHomeDir)
}

// NewRepositoryPathResolverWithProvider constructs a resolver with a custom home directory provider.
func NewRepositoryPathResolverWithProvider(provider HomeDirectoryProvider) *RepositoryPathResolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &RepositoryPathResolver{homeDirectoryProvider: provider}
}

// ExpandHome resolves a leading tilde to the user's home directory.
// Paths without a tilde prefix, or "~user" forms, are returned unchanged.
func (resolver *RepositoryPathResolver) ExpandHome(candidatePath string) string {
	if resolver == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	homeDirectory := resolver.resolveHomeDirectory()
	if len(homeDirectory) == 0 {
		return candidatePath
	}

	switch {
	case candidatePath == tildeSymbolConstant:
		return homeDirectory
	case strings.HasPrefix(candidatePath, tildeForwardSlashPrefixConstant):
		return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, tildeForwardSlashPrefixConstant))
	case strings.HasPrefix(candidatePath, tildeWithPathSeparatorPrefix):
		return filepath.Join(homeDirectory, strings.TrimPrefix(candidatePath, tildeWithPathSeparatorPrefix))
	default:
		return candidatePath
	}
}

// Resolve trims, expands and cleans every candidate, dropping blanks and
// repeated entries that refer to the same location. Order is preserved.
func (resolver *RepositoryPathResolver) Resolve(candidatePaths []string) []string {
	resolvedPaths := make([]string, 0, len(candidatePaths))
	seenLocations := make(map[string]struct{}, len(candidatePaths))

	for _, candidatePath := range candidatePaths {
		trimmedPath := strings.TrimSpace(candidatePath)
		if len(trimmedPath) == 0 {
			continue
		}

		cleanedPath := filepath.Clean(resolver.ExpandHome(trimmedPath))
		locationKey := cleanedPath
		if absolutePath, absoluteError := filepath.Abs(cleanedPath); absoluteError == nil {
			locationKey = absolutePath
		}
		if _, seen := seenLocations[locationKey]; seen {
			continue
		}
		seenLocations[locationKey] = struct{}{}
		resolvedPaths = append(resolvedPaths, cleanedPath)
	}

	if len(resolvedPaths) == 0 {
		return nil
	}
	return resolvedPaths
}

func (resolver *RepositoryPathResolver) resolveHomeDirectory() string {
	resolver.initializationGuard.Do(func() {
		resolver.homeDirectory, resolver.homeDirectoryError = resolver.homeDirectoryProvider()
	})
	if resolver.homeDirectoryError != nil {
		return ""
	}
	return resolver.homeDirectory
}
