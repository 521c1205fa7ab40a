package capture

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to protocol resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adDomains lists ad and tracking hosts blocked when BlockAds is set.
// Their scripts inject rotating markup that makes two snapshots of the
// same page differ.
var adDomains = map[string]struct{}{
	"doubleclick.net":        {},
	"googlesyndication.com":  {},
	"googleadservices.com":   {},
	"google-analytics.com":   {},
	"googletagmanager.com":   {},
	"googletagservices.com":  {},
	"connect.facebook.net":   {},
	"adnxs.com":              {},
	"adsrvr.org":             {},
	"amazon-adsystem.com":    {},
	"criteo.com":             {},
	"criteo.net":             {},
	"outbrain.com":           {},
	"taboola.com":            {},
	"moatads.com":            {},
	"pubmatic.com":           {},
	"rubiconproject.com":     {},
	"scorecardresearch.com":  {},
	"quantserve.com":         {},
	"hotjar.com":             {},
	"mixpanel.com":           {},
	"segment.io":             {},
	"chartbeat.com":          {},
	"optimizely.com":         {},
	"media.net":              {},
	"openx.net":              {},
	"casalemedia.com":        {},
	"demdex.net":             {},
	"krxd.net":               {},
	"static.ads-twitter.com": {},
	"sharethis.com":          {},
	"addthis.com":            {},
	"consensu.org":           {},
}

// isAdDomain reports whether host or any of its parent domains is listed.
func isAdDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := adDomains[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false
		}
		host = host[idx+1:]
	}
	return false
}

// blockedTypeSet turns config names into a lookup set, ignoring unknown names.
func blockedTypeSet(names []string) map[proto.NetworkResourceType]struct{} {
	set := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := resourceTypes[name]; ok {
			set[rt] = struct{}{}
		}
	}
	return set
}

// routeAdder is the part of rod.HijackRouter used to register the blocker.
type routeAdder interface {
	Add(pattern string, resourceType proto.NetworkResourceType, handler func(*rod.Hijack)) error
}

// setupHijack installs a request interceptor that fails blocked resource
// types and, optionally, ad domains. It returns a nil router when nothing is
// blocked or the interceptor could not be registered. The caller stops the
// returned router.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) (*rod.HijackRouter, error) {
	blocked := blockedTypeSet(blockedTypes)
	if len(blocked) == 0 && !blockAds {
		return nil, nil
	}

	router := page.HijackRequests()
	if err := addBlocker(router, blocked, blockAds); err != nil {
		_ = router.Stop()
		return nil, err
	}

	// router.Run blocks until router.Stop is called.
	go router.Run()

	return router, nil
}

// addBlocker registers the catch-all route that fails blocked requests and
// continues the rest.
func addBlocker(r routeAdder, blocked map[proto.NetworkResourceType]struct{}, blockAds bool) error {
	err := r.Add("*", "", func(h *rod.Hijack) {
		if _, ok := blocked[h.Request.Type()]; ok {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if blockAds {
			if u, err := url.Parse(h.Request.URL().String()); err == nil && isAdDomain(u.Hostname()) {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		return fmt.Errorf("register request blocker: %w", err)
	}
	return nil
}
