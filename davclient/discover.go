package davclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/cyp0633/davsync/daverr"
)

// discovery candidates follow the order Thunderbird uses: explicit path, DNS
// SRV (with optional TXT path), well-known URL, server root.
func (c *client) principalCandidates(ctx context.Context) []string {
	var candidates []string

	// 1. Direct location if a path is specified
	if c.baseURL.Path != "/" && c.baseURL.Path != "" {
		candidates = append(candidates, c.baseURL.String())
	}

	// 2. DNS SRV, secure labels first, both services
	for _, prefix := range []string{"_caldavs._tcp.", "_carddavs._tcp.", "_caldav._tcp.", "_carddav._tcp."} {
		host := prefix + c.baseURL.Hostname()
		_, addrs, err := c.resolver.LookupSRV(ctx, "", "", host)
		if err != nil {
			continue
		}

		// TXT records may carry the context path
		var path string
		txts, _ := c.resolver.LookupTXT(ctx, host)
		for _, txt := range txts {
			if strings.HasPrefix(txt, "path=") {
				path = txt[len("path="):]
				break
			}
		}

		scheme := "http"
		if strings.Contains(prefix, "davs") {
			scheme = "https"
		}
		for _, addr := range addrs {
			candidates = append(candidates,
				fmt.Sprintf("%s://%s:%d%s", scheme, strings.TrimSuffix(addr.Target, "."), addr.Port, path))
		}
	}

	// 3. well-known URLs
	candidates = append(candidates,
		c.baseURL.JoinPath(".well-known", "caldav").String(),
		c.baseURL.JoinPath(".well-known", "carddav").String())

	// 4. root path
	candidates = append(candidates, c.baseURL.JoinPath("/").String())

	return candidates
}

// DiscoverPrincipal resolves the authenticated user's principal URL by
// probing the discovery candidates with a current-user-principal PROPFIND.
func (c *client) DiscoverPrincipal(ctx context.Context) (string, error) {
	for _, candidate := range c.principalCandidates(ctx) {
		ms, err := c.http.DoPROPFIND(ctx, candidate, 0, "current-user-principal")
		if err != nil {
			if daverr.IsKind(err, daverr.KindNetworkFailure) {
				return "", err
			}
			c.logger.Debug("principal candidate failed", "url", candidate, "error", err)
			continue
		}
		for _, entry := range ms.Entries {
			if entry.Err == nil && entry.Principal != "" {
				return absURL(candidate, entry.Principal), nil
			}
		}
	}
	return "", daverr.NotFound()
}

// DiscoverCalendarHome resolves the calendar-home-set collection of a
// principal.
func (c *client) DiscoverCalendarHome(ctx context.Context, principalURL string) (string, error) {
	return c.discoverHome(ctx, principalURL, "calendar-home-set")
}

// DiscoverAddressBookHome resolves the addressbook-home-set collection of a
// principal.
func (c *client) DiscoverAddressBookHome(ctx context.Context, principalURL string) (string, error) {
	return c.discoverHome(ctx, principalURL, "addressbook-home-set")
}

func (c *client) discoverHome(ctx context.Context, principalURL, prop string) (string, error) {
	ms, err := c.http.DoPROPFIND(ctx, principalURL, 0, prop)
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", prop, err)
	}
	for _, entry := range ms.Entries {
		if entry.Err != nil {
			continue
		}
		home := entry.CalendarHome
		if prop == "addressbook-home-set" {
			home = entry.AddressBookHome
		}
		if home != "" {
			return absURL(principalURL, home), nil
		}
	}
	return "", daverr.NotFound()
}

// ListCalendars enumerates the calendar collections under a calendar home.
func (c *client) ListCalendars(ctx context.Context, homeURL string) ([]CollectionInfo, error) {
	return c.listCollections(ctx, homeURL, TypeCalendar)
}

// ListAddressBooks enumerates the address book collections under an
// addressbook home.
func (c *client) ListAddressBooks(ctx context.Context, homeURL string) ([]CollectionInfo, error) {
	return c.listCollections(ctx, homeURL, TypeAddressBook)
}

func (c *client) listCollections(ctx context.Context, homeURL string, want ResourceType) ([]CollectionInfo, error) {
	ms, err := c.http.DoPROPFIND(ctx, homeURL, 1,
		"resourcetype",
		"displayname",
		"calendar-description",
		"addressbook-description",
		"calendar-color",
		"getctag",
		"getetag",
		"current-user-privilege-set")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	collections := make([]CollectionInfo, 0)
	for _, entry := range ms.Entries {
		if entry.Err != nil || entry.Status != 200 {
			continue
		}
		matches := (want == TypeCalendar && entry.IsCalendar) ||
			(want == TypeAddressBook && entry.IsAddressBook)
		if !matches {
			continue
		}
		collections = append(collections, CollectionInfo{
			Resource: Resource{
				URL:  absURL(homeURL, entry.Href),
				ETag: entry.ETag,
				Type: want,
			},
			Name:        entry.DisplayName,
			Description: entry.Description,
			Color:       entry.Color,
			CTag:        entry.CTag,
			ReadOnly:    !entry.CanWrite,
		})
	}
	return collections, nil
}

// ServerCapabilities probes the DAV compliance classes of a URL via OPTIONS.
func (c *client) ServerCapabilities(ctx context.Context, urlStr string) ([]string, error) {
	return c.http.DoOPTIONS(ctx, urlStr)
}

// FindCalendars discovers every calendar available to the user at location:
// principal, then calendar home, then the home's calendar collections.
func FindCalendars(ctx context.Context, location string, cfg *Config) ([]CollectionInfo, error) {
	c, err := NewClient(location, cfg)
	if err != nil {
		return nil, err
	}
	principal, err := c.DiscoverPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not find current-user-principal: %w", err)
	}
	home, err := c.DiscoverCalendarHome(ctx, principal)
	if err != nil {
		return nil, err
	}
	return c.ListCalendars(ctx, home)
}

// FindAddressBooks is the CardDAV counterpart of FindCalendars.
func FindAddressBooks(ctx context.Context, location string, cfg *Config) ([]CollectionInfo, error) {
	c, err := NewClient(location, cfg)
	if err != nil {
		return nil, err
	}
	principal, err := c.DiscoverPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not find current-user-principal: %w", err)
	}
	home, err := c.DiscoverAddressBookHome(ctx, principal)
	if err != nil {
		return nil, err
	}
	return c.ListAddressBooks(ctx, home)
}
