package gitrepo

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	fileProtocolPrefixConstant          = "file://"
	userDelimiterConstant               = "@"
	scpPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
	emptyDirectoryNameMessageConstant   = "cannot derive a directory name"
)

// RemoteProtocol enumerates recognized clone source protocols.
type RemoteProtocol string

// Recognized protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
	RemoteProtocolFile  RemoteProtocol = RemoteProtocol("file")
)

// RemoteURL represents a structured clone source.
// Owner holds every path segment before the repository name and may itself contain slashes.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
// Credentials embedded in the URL are discarded.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolSSH, strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant), remote)
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolHTTPS, strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant), remote)
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolHTTP, strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant), remote)
	case strings.HasPrefix(trimmedRemote, fileProtocolPrefixConstant):
		return parseFileRemote(strings.TrimPrefix(trimmedRemote, fileProtocolPrefixConstant), remote)
	case isSCPStyleRemote(trimmedRemote):
		return parseSCPRemote(trimmedRemote, remote)
	}

	return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
}

// DefaultCloneDirectoryName returns the directory git would create when cloning source without an explicit destination.
// Local paths are accepted alongside URLs.
func DefaultCloneDirectoryName(source string) (string, error) {
	if remoteURL, parseError := ParseRemoteURL(source); parseError == nil {
		return remoteURL.Repository, nil
	}

	trimmedSource := strings.TrimRight(strings.TrimSpace(source), pathSeparatorConstant+string(filepath.Separator))
	if len(trimmedSource) == 0 {
		return "", RemoteURLParseError{Input: source, Message: requiredValueMessageConstant}
	}
	directoryName := strings.TrimSuffix(filepath.Base(trimmedSource), gitSuffixConstant)
	if len(directoryName) == 0 || directoryName == "." || directoryName == pathSeparatorConstant {
		return "", RemoteURLParseError{Input: source, Message: emptyDirectoryNameMessageConstant}
	}
	return directoryName, nil
}

func parseHierarchicalRemote(protocol RemoteProtocol, remainder string, original string) (RemoteURL, error) {
	hostAndPath := stripUserInformation(remainder)
	slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
	if slashIndex <= 0 {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	owner, repository, splitError := splitOwnerAndRepository(hostAndPath[slashIndex+1:], original)
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: protocol, Host: hostAndPath[:slashIndex], Owner: owner, Repository: repository}, nil
}

func parseSCPRemote(remote string, original string) (RemoteURL, error) {
	hostAndPath := stripUserInformation(remote)
	delimiterIndex := strings.Index(hostAndPath, scpPathDelimiterConstant)
	owner, repository, splitError := splitOwnerAndRepository(hostAndPath[delimiterIndex+1:], original)
	if splitError != nil {
		return RemoteURL{}, splitError
	}
	return RemoteURL{Protocol: RemoteProtocolSSH, Host: hostAndPath[:delimiterIndex], Owner: owner, Repository: repository}, nil
}

func parseFileRemote(remainder string, original string) (RemoteURL, error) {
	cleanedPath := path.Clean(pathSeparatorConstant + strings.TrimLeft(remainder, pathSeparatorConstant))
	if cleanedPath == pathSeparatorConstant {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	repository := strings.TrimSuffix(path.Base(cleanedPath), gitSuffixConstant)
	if len(repository) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: RemoteProtocolFile, Owner: strings.TrimPrefix(path.Dir(cleanedPath), pathSeparatorConstant), Repository: repository}, nil
}

// isSCPStyleRemote recognizes user@host:path and host:path forms, which git treats as ssh when
// the colon precedes any slash.
func isSCPStyleRemote(remote string) bool {
	delimiterIndex := strings.Index(remote, scpPathDelimiterConstant)
	if delimiterIndex <= 0 {
		return false
	}
	slashIndex := strings.Index(remote, pathSeparatorConstant)
	return slashIndex == -1 || delimiterIndex < slashIndex
}

func stripUserInformation(hostAndPath string) string {
	slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
	authority := hostAndPath
	if slashIndex >= 0 {
		authority = hostAndPath[:slashIndex]
	}
	userIndex := strings.LastIndex(authority, userDelimiterConstant)
	if userIndex == -1 {
		return hostAndPath
	}
	return hostAndPath[userIndex+1:]
}

func splitOwnerAndRepository(repositoryPath string, original string) (string, string, error) {
	trimmedPath := strings.Trim(repositoryPath, pathSeparatorConstant)
	if len(trimmedPath) == 0 {
		return "", "", RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	separatorIndex := strings.LastIndex(trimmedPath, pathSeparatorConstant)
	owner := ""
	repositorySegment := trimmedPath
	if separatorIndex >= 0 {
		owner = trimmedPath[:separatorIndex]
		repositorySegment = trimmedPath[separatorIndex+1:]
	}
	repository := strings.TrimSuffix(repositorySegment, gitSuffixConstant)
	if len(repository) == 0 {
		return "", "", RemoteURLParseError{Input: original, Message: invalidRemoteURLMessageConstant}
	}
	return owner, repository, nil
}
