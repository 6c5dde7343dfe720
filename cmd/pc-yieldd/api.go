// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pushchain/pc-yield-contracts/internal/admission"
	"github.com/pushchain/pc-yield-contracts/internal/engine"
	"github.com/pushchain/pc-yield-contracts/internal/logging"
	"github.com/pushchain/pc-yield-contracts/pkg/errors"
	"github.com/pushchain/pc-yield-contracts/pkg/merkle"
	"github.com/pushchain/pc-yield-contracts/protocol"
)

// api is the HTTP front end of the engine. Hashes are hex strings and
// amounts are decimal strings on the wire.
type api struct {
	engine *engine.Engine
	logger *slog.Logger
}

func newAPI(e *engine.Engine, logger *slog.Logger) http.Handler {
	a := &api{engine: e, logger: logging.With(logger, "api")}

	r := httprouter.New()
	r.POST("/v1/deposit", a.deposit)
	r.POST("/v1/unstake", a.unstake)
	r.POST("/v1/withdraw", a.withdraw)
	r.POST("/v1/claim", a.claim)
	r.POST("/v1/unstake-and-claim", a.unstakeAndClaim)
	r.POST("/v1/fund", a.fund)
	r.POST("/v1/close-season", a.closeSeason)
	r.POST("/v1/close-program", a.closeProgram)
	r.POST("/v1/allowlist-root", a.setAllowlistRoot)
	r.POST("/v1/lock-length", a.setLockLength)
	r.POST("/v1/cooldown-length", a.setCooldownLength)
	r.POST("/v1/funder", a.setFunder)
	r.POST("/v1/recover-foreign", a.recoverForeign)
	r.POST("/v1/recover-native", a.recoverNative)
	r.GET("/v1/depositor/:id", a.depositor)
	r.GET("/v1/totals", a.totals)
	r.GET("/v1/epoch/:index", a.epoch)
	r.GET("/v1/season", a.season)
	r.GET("/v1/params", a.params)
	r.GET("/v1/balance/:asset", a.balance)
	r.Handler("GET", "/metrics", promhttp.Handler())
	return r
}

// proofRequest is the wire form of an admission proof.
type proofRequest struct {
	Path       []string `json:"path"`
	Tag        string   `json:"tag,omitempty"`
	Multiplier uint64   `json:"multiplier,omitempty"`
}

func parseHash(s string) (merkle.Hash, error) {
	var h merkle.Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(h) {
		return h, errors.EncodingError.WithFormat("invalid hash %q", s)
	}
	copy(h[:], b)
	return h, nil
}

func (p *proofRequest) parse() (*admission.Proof, error) {
	if p == nil {
		return nil, nil
	}
	proof := &admission.Proof{Multiplier: p.Multiplier}
	for _, s := range p.Path {
		h, err := parseHash(s)
		if err != nil {
			return nil, err
		}
		proof.Path = append(proof.Path, h)
	}
	if p.Tag != "" {
		tag, err := parseHash(p.Tag)
		if err != nil {
			return nil, err
		}
		proof.Tag = tag
	}
	return proof, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.EncodingError.WithFormat("invalid amount %q", s)
	}
	return v, nil
}

func (a *api) read(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		a.error(w, errors.EncodingError.WithFormat("decode request: %w", err))
		return false
	}
	return true
}

func (a *api) write(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.logger.Error("Failed to write response", "error", err)
	}
}

func (a *api) error(w http.ResponseWriter, err error) {
	code := errors.Code(err)
	status := int(code)
	if !code.IsKnownError() || status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"error":   err.Error(),
		"message": code.String(),
	})
}

func (a *api) deposit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Depositor string        `json:"depositor"`
		Amount    string        `json:"amount"`
		Proof     *proofRequest `json:"proof,omitempty"`
	}
	if !a.read(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, err)
		return
	}
	proof, err := req.Proof.parse()
	if err != nil {
		a.error(w, err)
		return
	}
	err = a.engine.AdmitAndDeposit(protocol.Identity(req.Depositor), amount, proof)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"deposited": amount})
}

func (a *api) unstake(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Depositor string `json:"depositor"`
		Amount    string `json:"amount"`
	}
	if !a.read(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, err)
		return
	}
	err = a.engine.RequestUnstake(protocol.Identity(req.Depositor), amount)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"pending": amount})
}

func (a *api) withdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Depositor string `json:"depositor"`
	}
	if !a.read(w, r, &req) {
		return
	}
	amount, err := a.engine.Withdraw(protocol.Identity(req.Depositor))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"withdrawn": amount})
}

func (a *api) claim(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Depositor string `json:"depositor"`
	}
	if !a.read(w, r, &req) {
		return
	}
	paid, err := a.engine.Claim(protocol.Identity(req.Depositor))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"paid": paid})
}

func (a *api) unstakeAndClaim(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Depositor string `json:"depositor"`
		Amount    string `json:"amount"`
	}
	if !a.read(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, err)
		return
	}
	paid, err := a.engine.UnstakeAndClaim(protocol.Identity(req.Depositor), amount)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"paid": paid, "pending": amount})
}

func (a *api) fund(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
		Bucket uint64 `json:"bucket,omitempty"`
		Amount string `json:"amount"`
	}
	if !a.read(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, err)
		return
	}
	err = a.engine.Fund(protocol.Identity(req.Caller), req.Bucket, amount)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"funded": amount})
}

func (a *api) closeSeason(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
	}
	if !a.read(w, r, &req) {
		return
	}
	err := a.engine.CloseSeason(protocol.Identity(req.Caller))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"closed": true})
}

func (a *api) closeProgram(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
	}
	if !a.read(w, r, &req) {
		return
	}
	err := a.engine.CloseProgram(protocol.Identity(req.Caller))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"closed": true})
}

func (a *api) setAllowlistRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
		Root   string `json:"root"`
	}
	if !a.read(w, r, &req) {
		return
	}
	root, err := parseHash(req.Root)
	if err != nil {
		a.error(w, err)
		return
	}
	err = a.engine.SetAllowlistRoot(protocol.Identity(req.Caller), root)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"root": req.Root})
}

func (a *api) setLockLength(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a.setLength(w, r, a.engine.SetLockLength)
}

func (a *api) setCooldownLength(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	a.setLength(w, r, a.engine.SetCooldownLength)
}

func (a *api) setLength(w http.ResponseWriter, r *http.Request, set func(protocol.Identity, time.Duration) error) {
	var req struct {
		Caller string `json:"caller"`
		Length string `json:"length"`
	}
	if !a.read(w, r, &req) {
		return
	}
	d, err := time.ParseDuration(req.Length)
	if err != nil {
		a.error(w, errors.EncodingError.WithFormat("invalid duration %q", req.Length))
		return
	}
	err = set(protocol.Identity(req.Caller), d)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"length": d.String()})
}

func (a *api) setFunder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
		Funder string `json:"funder"`
	}
	if !a.read(w, r, &req) {
		return
	}
	err := a.engine.SetFunder(protocol.Identity(req.Caller), protocol.Identity(req.Funder))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"funder": req.Funder})
}

func (a *api) recoverForeign(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
		Asset  string `json:"asset"`
		Amount string `json:"amount"`
	}
	if !a.read(w, r, &req) {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		a.error(w, err)
		return
	}
	err = a.engine.RecoverForeignAsset(protocol.Identity(req.Caller), req.Asset, amount)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"recovered": amount})
}

func (a *api) recoverNative(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Caller string `json:"caller"`
	}
	if !a.read(w, r, &req) {
		return
	}
	swept, err := a.engine.RecoverNative(protocol.Identity(req.Caller))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"recovered": swept})
}

func (a *api) depositor(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	rec, err := a.engine.Depositor(protocol.Identity(p.ByName("id")))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, rec)
}

func (a *api) totals(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	totals, err := a.engine.Totals()
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, totals)
}

func (a *api) epoch(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	index, err := strconv.ParseUint(p.ByName("index"), 10, 64)
	if err != nil {
		a.error(w, errors.EncodingError.WithFormat("invalid epoch index %q", p.ByName("index")))
		return
	}
	rec, err := a.engine.Epoch(index)
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, rec)
}

func (a *api) season(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	season, err := a.engine.Season()
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, season)
}

func (a *api) params(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	params := a.engine.Params()
	a.write(w, &params)
}

func (a *api) balance(w http.ResponseWriter, _ *http.Request, p httprouter.Params) {
	balance, err := a.engine.Balance(p.ByName("asset"))
	if err != nil {
		a.error(w, err)
		return
	}
	a.write(w, map[string]any{"asset": p.ByName("asset"), "balance": balance})
}
