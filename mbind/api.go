package mbind

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ankurkotwal/metabind/mbind/axes"
	"github.com/ankurkotwal/metabind/mbind/backend"
	"github.com/ankurkotwal/metabind/mbind/bindings"
	"github.com/ankurkotwal/metabind/mbind/canonical"
	"github.com/ankurkotwal/metabind/mbind/capture"
	"github.com/ankurkotwal/metabind/mbind/common"
	"github.com/ankurkotwal/metabind/mbind/devices"
)

var errBadRequest = errors.New("bad request")

// errorStatus maps pipeline errors onto HTTP statuses
func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, canonical.ErrUnparseable),
		errors.Is(err, canonical.ErrBareModifier),
		errors.Is(err, canonical.ErrUnbound),
		errors.Is(err, devices.ErrUnknownSlot):
		return http.StatusBadRequest
	case errors.Is(err, capture.ErrNoSession),
		errors.Is(err, capture.ErrUnknownCandidate),
		errors.Is(err, bindings.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	case errors.Is(err, capture.ErrNothingDetected),
		errors.Is(err, capture.ErrDeviceMismatch),
		errors.Is(err, capture.ErrCancelled),
		errors.Is(err, capture.ErrSuperseded),
		errors.Is(err, context.Canceled):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *Services) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.Log.Err("%s %s: %s", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func (s *Services) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Services) getStatus(c *gin.Context) {
	snap, open := s.Controller.Snapshot()
	status := gin.H{
		"app":           s.Config.AppName,
		"version":       s.Config.Version,
		"capture_open":  open,
		"stale_dropped": s.Controller.StaleDropped(),
		"clients":       s.Hub.Count(),
		"devices":       s.Feed.Devices(),
		"sdl":           s.SDL != nil,
	}
	if open {
		status["session"] = snap
	}
	c.JSON(http.StatusOK, status)
}

func (s *Services) getLog(c *gin.Context) {
	entries := s.Log.Snapshot()
	if c.Query("reset") == "true" {
		s.Log.Reset()
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type startRequest struct {
	common.ActionRef
	ExpectClass common.InputSource `json:"expect_class"`
	ExpectSlot  devices.Slot       `json:"expect_slot"`
}

// knownAction is true for actions the catalog or the user's file define
func (s *Services) knownAction(ref common.ActionRef) bool {
	if s.Profile.Catalog().Has(ref) {
		return true
	}
	_, found := s.Profile.Rebinds(ref)
	return found
}

func (s *Services) startCapture(c *gin.Context) {
	var req startRequest
	if !s.bind(c, &req) {
		return
	}
	if req.ActionMap == "" || req.Action == "" {
		s.fail(c, errors.Join(errBadRequest, errors.New("action_map and action are required")))
		return
	}
	if !s.knownAction(req.ActionRef) {
		s.fail(c, errors.Join(bindings.ErrActionNotFound, errors.New(req.ActionRef.String())))
		return
	}
	if req.ExpectSlot != devices.SlotNone && req.ExpectClass == common.SourceUnknown {
		req.ExpectClass = req.ExpectSlot.Class()
	}
	snap := s.Controller.Start(req.ActionRef, capture.Expectation{
		Class: req.ExpectClass,
		Slot:  req.ExpectSlot,
	})
	c.JSON(http.StatusCreated, snap)
}

func (s *Services) getCapture(c *gin.Context) {
	snap, open := s.Controller.Snapshot()
	if !open && snap.SessionID == "" {
		s.fail(c, capture.ErrNoSession)
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": open, "session": snap})
}

func (s *Services) cancelCapture(c *gin.Context) {
	snap, closed := s.Controller.Cancel()
	if !closed {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type inputRequest struct {
	SessionID string                  `json:"session_id"`
	Event     canonical.RawInputEvent `json:"event"`
}

func (s *Services) postInput(c *gin.Context) {
	var req inputRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Event.Source.IsDevice() {
		s.fail(c, errors.Join(errBadRequest, errors.New("device events go to /api/capture/feed")))
		return
	}
	delivered := s.UI.PushFor(req.SessionID, req.Event)
	c.JSON(http.StatusAccepted, gin.H{"delivered": delivered})
}

func (s *Services) postFeed(c *gin.Context) {
	var ev capture.FeedEvent
	if !s.bind(c, &ev) {
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"delivered": s.Feed.Push(ev)})
}

type xinputRequest struct {
	UserIndex int    `json:"user_index"`
	Buttons   uint16 `json:"buttons"`
}

func (s *Services) postXInput(c *gin.Context) {
	var req xinputRequest
	if !s.bind(c, &req) {
		return
	}
	if req.UserIndex < 0 || req.UserIndex > 3 {
		s.fail(c, errors.Join(errBadRequest, errors.New("user_index must be 0..3")))
		return
	}
	s.Feed.XInput(req.UserIndex, req.Buttons)
	c.JSON(http.StatusAccepted, gin.H{"pressed": backend.XInputButtons(req.Buttons)})
}

type selectRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input" binding:"required"`
}

func (s *Services) selectCandidate(c *gin.Context) {
	var req selectRequest
	if !s.bind(c, &req) {
		return
	}
	snap, err := s.Controller.Select(req.SessionID, req.Input)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type confirmRequest struct {
	SessionID      string `json:"session_id"`
	MultiTap       int    `json:"multi_tap"`
	ActivationMode string `json:"activation_mode"`
	// DryRun closes the session without writing the binding
	DryRun bool `json:"dry_run"`
}

func (s *Services) confirmCapture(c *gin.Context) {
	var req confirmRequest
	if !s.bind(c, &req) {
		return
	}
	conf, err := s.Controller.Confirm(req.SessionID)
	if err != nil {
		s.fail(c, err)
		return
	}
	conflicts := s.Conflicts.FindConflicts(conf.Selected.Input, conf.Target)
	if !req.DryRun {
		if err := s.Commit(conf.Target, conf.Selected.Input, req.MultiTap, req.ActivationMode); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"confirmation": conf,
		"conflicts":    conflicts,
		"committed":    !req.DryRun,
	})
}

func (s *Services) getConflicts(c *gin.Context) {
	input := c.Query("input")
	if input == "" {
		s.fail(c, errors.Join(errBadRequest, errors.New("input is required")))
		return
	}
	exclude := common.ActionRef{ActionMap: c.Query("action_map"), Action: c.Query("action")}
	conflicts := s.Conflicts.FindConflicts(input, exclude)
	if conflicts == nil {
		conflicts = []common.ConflictEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"input": input, "conflicts": conflicts})
}

func (s *Services) getBindings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bindings": s.Profile.Bindings()})
}

type bindingRequest struct {
	common.ActionRef
	Input          string `json:"input"`
	MultiTap       int    `json:"multi_tap"`
	ActivationMode string `json:"activation_mode"`
}

// Commit writes a binding, saves the file and tells the UIs
func (s *Services) Commit(ref common.ActionRef, input string, multiTap int, activationMode string) error {
	if err := s.Profile.Commit(ref, input, multiTap, activationMode); err != nil {
		return err
	}
	return s.bindingsChanged()
}

func (s *Services) bindingsChanged() error {
	if err := s.saveProfile(); err != nil {
		return err
	}
	s.Broadcaster.BindingsChanged()
	return nil
}

func (s *Services) commitBinding(c *gin.Context) {
	var req bindingRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.Commit(req.ActionRef, req.Input, req.MultiTap, req.ActivationMode); err != nil {
		s.fail(c, err)
		return
	}
	rebinds, _ := s.Profile.Rebinds(req.ActionRef)
	c.JSON(http.StatusOK, gin.H{"action": req.ActionRef, "rebinds": rebinds})
}

func (s *Services) resetBinding(c *gin.Context) {
	ref := common.ActionRef{ActionMap: c.Query("action_map"), Action: c.Query("action")}
	if ref.ActionMap == "" || ref.Action == "" {
		s.fail(c, errors.Join(errBadRequest, errors.New("action_map and action are required")))
		return
	}
	reset := s.Profile.Reset(ref)
	if reset {
		if err := s.bindingsChanged(); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"action": ref, "reset": reset})
}

func (s *Services) clearBinding(c *gin.Context) {
	var req bindingRequest
	if !s.bind(c, &req) {
		return
	}
	if err := s.Profile.Clear(req.ActionRef, req.Input); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.bindingsChanged(); err != nil {
		s.fail(c, err)
		return
	}
	rebinds, _ := s.Profile.Rebinds(req.ActionRef)
	c.JSON(http.StatusOK, gin.H{"action": req.ActionRef, "rebinds": rebinds})
}

func (s *Services) getDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"slots":     s.Identities.Identities(),
		"connected": s.Feed.Devices(),
	})
}

type detectDeviceRequest struct {
	Slot devices.Slot `json:"slot"`
}

func (s *Services) detectDevice(c *gin.Context) {
	var req detectDeviceRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Slot == devices.SlotNone {
		s.fail(c, errors.Join(errBadRequest, devices.ErrUnknownSlot))
		return
	}
	ev, err := s.Controller.DetectDevice(c.Request.Context(), s.Config.DeviceDetectTimeout)
	if err != nil {
		s.fail(c, err)
		return
	}
	if ev.Source != req.Slot.Class() {
		s.Log.Warn("%s is a %s but was assigned to %s", ev.DeviceName, ev.Source, req.Slot)
	}
	if err := s.Identities.Record(ev.DeviceID, ev.DeviceName, req.Slot); err != nil {
		s.fail(c, err)
		return
	}
	s.Axes.RegisterDevice(ev.DeviceID, ev.DeviceName)
	id, _ := s.Identities.Lookup(req.Slot)
	c.JSON(http.StatusOK, id)
}

func (s *Services) resetDevice(c *gin.Context) {
	slot, err := devices.ParseSlot(c.Param("slot"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.Identities.Reset(slot); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot, "reset": true})
}

// resolvedAxes is what every raw index currently normalises to
func (s *Services) resolvedAxes(device string) map[int]string {
	out := make(map[int]string, axes.MaxAxes)
	for raw := 0; raw < axes.MaxAxes; raw++ {
		out[raw] = s.Axes.LogicalName(device, raw)
	}
	return out
}

func (s *Services) getAxes(c *gin.Context) {
	device := c.Param("device")
	resp := gin.H{"device": device, "resolved": s.resolvedAxes(device)}
	if table, found := s.Axes.Table(device); found {
		resp["table"] = table
	}
	c.JSON(http.StatusOK, resp)
}

type axesRequest struct {
	Mapping axes.Table `json:"mapping"`
}

func (s *Services) putAxes(c *gin.Context) {
	var req axesRequest
	if !s.bind(c, &req) {
		return
	}
	device := c.Param("device")
	if err := s.Axes.SetTable(device, req.Mapping); err != nil {
		s.fail(c, errors.Join(errBadRequest, err))
		return
	}
	table, _ := s.Axes.Table(device)
	c.JSON(http.StatusOK, gin.H{"device": device, "table": table})
}

func (s *Services) deleteAxes(c *gin.Context) {
	device := c.Param("device")
	if err := s.Axes.ResetTable(device); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": device, "resolved": s.resolvedAxes(device)})
}

type autoRequest struct {
	// Target is a descriptor path, hidraw node or device name. Defaults to
	// the device itself.
	Target string `json:"target"`
}

func (s *Services) autoAxes(c *gin.Context) {
	var req autoRequest
	// An empty body is fine here
	_ = c.ShouldBindJSON(&req)
	device := c.Param("device")
	if req.Target == "" {
		req.Target = device
	}
	names := s.Descriptors.AxisNames(req.Target)
	table, err := s.Axes.AutoPopulate(device, names)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"device": device, "descriptor": names, "table": table})
}

func (s *Services) detectAxis(c *gin.Context) {
	device := c.Param("device")
	ev, err := s.Controller.DetectAxis(c.Request.Context(), device, s.Config.AxisDetectTimeout)
	if err != nil {
		s.fail(c, err)
		return
	}
	raw := ev.Control.Index - 1
	c.JSON(http.StatusOK, gin.H{
		"device":     ev.DeviceID,
		"raw_index":  raw,
		"axis":       "axis" + strconv.Itoa(ev.Control.Index),
		"logical":    s.Axes.LogicalName(ev.DeviceID, raw),
		"direction":  ev.Control.Direction,
		"deflection": ev.Control.Deflection,
	})
}

type sampleRequest struct {
	Axis  int `json:"axis"`
	Value int `json:"value"`
	Bits  int `json:"bits"`
}

func (s *Services) sampleAxis(c *gin.Context) {
	var req sampleRequest
	if !s.bind(c, &req) {
		return
	}
	device := c.Param("device")
	fraction, changed := s.Axes.Resolution.Observe(device, req.Axis, req.Value, req.Bits)
	resp := gin.H{
		"fraction":  fraction,
		"changed":   changed,
		"bit_depth": s.Axes.Resolution.BitDepth(device, req.Axis),
	}
	if lo, hi, seen := s.Axes.Resolution.Range(device, req.Axis); seen {
		resp["min"], resp["max"] = lo, hi
	}
	c.JSON(http.StatusOK, resp)
}
