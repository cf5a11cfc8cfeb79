package api

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"reactdb/pkg/auth"
	"reactdb/pkg/engine"
	"reactdb/pkg/models"
	"reactdb/pkg/utils"
)

// FastHandler is the allocation-light hot path for callback traffic.
// It serves only POST /v1/callbacks with the same semantics as the
// mux interaction endpoint; everything else 404s.
func FastHandler(e *engine.Engine, keys auth.Keys) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/v1/callbacks" || !ctx.IsPost() {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		if !keys.CheckKeyFast(string(ctx.Request.Header.Peek("X-API-Key"))) {
			utils.JSONErrorFast(ctx, fasthttp.StatusUnauthorized, "invalid api key")
			return
		}
		var ev models.Interaction
		if err := json.Unmarshal(ctx.PostBody(), &ev); err != nil {
			utils.JSONErrorFast(ctx, fasthttp.StatusBadRequest, "invalid json")
			return
		}
		res, _ := e.HandleInteraction(ctx, ev)
		ctx.Response.Header.Set("Content-Type", "application/json")
		ctx.SetStatusCode(fasthttp.StatusOK)
		_ = json.NewEncoder(ctx).Encode(res)
	}
}
