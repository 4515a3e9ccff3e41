// CLAUDE:SUMMARY Intercepts and blocks configured resource types (images, fonts, media, stylesheets) on Rod pages.
package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyResourceBlocking sets up request interception to block the given
// resource types. The returned router must be stopped with the page.
func applyResourceBlocking(page *rod.Page, types []string) *rod.HijackRouter {
	blockSet := blockSetOf(types)
	router := page.HijackRequests()

	router.MustAdd("*", func(ctx *rod.Hijack) {
		if shouldBlock(blockSet, string(ctx.Request.Type())) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()
	return router
}

func blockSetOf(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}

// shouldBlock maps CDP resource types to the config names.
func shouldBlock(blockSet map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)
	switch lower {
	case "image":
		return blockSet["images"]
	case "font":
		return blockSet["fonts"]
	case "media":
		return blockSet["media"]
	case "stylesheet":
		return blockSet["stylesheets"]
	case "document":
		return false
	}
	return blockSet[lower]
}
