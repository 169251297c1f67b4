package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rainsave/rainsave/pkg/utils"
)

// RestorePlan summarizes what a snapshot would write back to the controller.
// The operator sees and confirms this before anything is sent.
type RestorePlan struct {
	SourceFile string
	Host       string
	Name       string
	HasCloud   bool
	Zones      int
	Programs   int
}

// restoreDocument is the parsed form of a snapshot file.
type restoreDocument struct {
	host     string
	name     string
	cloud    json.RawMessage
	zones    []restoreItem
	programs []restoreItem
}

// restoreItem is one zone or program entry with its uid extracted and the
// original JSON kept verbatim for the write call.
type restoreItem struct {
	uid int64
	raw json.RawMessage
}

// runRestore reads a snapshot, shows the plan, and on confirmation writes the
// settings back to the controller.
func (o *Orchestrator) runRestore(ctx context.Context) error {
	path, err := o.resolveRestorePath()
	if err != nil {
		return err
	}

	o.log.Step("Reading snapshot %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return &FileError{Op: "read", Path: path, Err: err}
	}

	if strings.HasSuffix(path, ".age") {
		o.log.Step("Decrypting snapshot")
		data, err = o.decryptSnapshot(ctx, data)
		if err != nil {
			return err
		}
	}

	doc, err := parseDocument(path, data)
	if err != nil {
		return err
	}

	plan := &RestorePlan{
		SourceFile: path,
		Host:       o.cfg.Host,
		Name:       doc.name,
		HasCloud:   len(doc.cloud) > 0,
		Zones:      len(doc.zones),
		Programs:   len(doc.programs),
	}
	if doc.host != "" && doc.host != o.cfg.Host {
		o.log.Warning("Snapshot was taken from %s but the target controller is %s", doc.host, o.cfg.Host)
	}

	if err := o.ui.ShowRestorePlan(plan); err != nil {
		return err
	}
	confirmed, err := o.ui.ConfirmRestore(plan)
	if err != nil {
		return err
	}
	if !confirmed {
		o.log.Warning("Restore aborted, controller untouched")
		return ErrRestoreAborted
	}

	o.log.Step("Contacting controller %s", o.cfg.Host)
	if _, err := o.client.Version(ctx); err != nil {
		return err
	}
	o.log.Step("Authenticating")
	if err := o.client.Authenticate(ctx); err != nil {
		return err
	}

	applyErr := o.applyDocument(ctx, doc)
	if uiErr := o.ui.ShowRestoreResult(plan, applyErr); uiErr != nil {
		o.log.Warning("Cannot display restore result: %v", uiErr)
	}
	return applyErr
}

// resolveRestorePath picks the input file: an explicit --file, otherwise
// <host>.json, falling back to the encrypted variant when only that exists.
func (o *Orchestrator) resolveRestorePath() (string, error) {
	path := o.cfg.File
	if path == "" {
		path = o.cfg.Host + ".json"
	}
	if utils.FileExists(path) {
		return path, nil
	}
	if !strings.HasSuffix(path, ".age") && utils.FileExists(path+".age") {
		return path + ".age", nil
	}
	return "", &FileError{Op: "open", Path: path, Err: os.ErrNotExist}
}

// parseDocument validates a snapshot and extracts the restorable sections.
func parseDocument(path string, data []byte) (*restoreDocument, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	doc := &restoreDocument{}

	if hostRaw, ok := raw["host"]; ok {
		if err := json.Unmarshal(hostRaw, &doc.host); err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("host: %w", err)}
		}
	}
	if nameRaw, ok := raw["name"]; ok {
		if err := json.Unmarshal(nameRaw, &doc.name); err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("name: %w", err)}
		}
	}
	if cloudRaw, ok := raw["cloud"]; ok && string(cloudRaw) != "null" {
		doc.cloud = cloudRaw
	}

	var err error
	if zonesRaw, ok := raw["zones"]; ok {
		doc.zones, err = parseItems(zonesRaw)
		if err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("zones: %w", err)}
		}
	}
	if programsRaw, ok := raw["programs"]; ok {
		doc.programs, err = parseItems(programsRaw)
		if err != nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("programs: %w", err)}
		}
	}

	if doc.name == "" && doc.cloud == nil && len(doc.zones) == 0 && len(doc.programs) == 0 {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("no restorable sections found")}
	}

	return doc, nil
}

func parseItems(raw json.RawMessage) ([]restoreItem, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	items := make([]restoreItem, 0, len(entries))
	for i, entry := range entries {
		var header struct {
			UID int64 `json:"uid"`
		}
		if err := json.Unmarshal(entry, &header); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if header.UID == 0 {
			return nil, fmt.Errorf("entry %d: missing uid", i)
		}
		items = append(items, restoreItem{uid: header.UID, raw: entry})
	}
	return items, nil
}

// applyDocument writes each restorable section back, in the same order the
// backup collected them.
func (o *Orchestrator) applyDocument(ctx context.Context, doc *restoreDocument) error {
	if doc.name != "" {
		o.log.Step("Restoring controller name %q", doc.name)
		if err := o.client.SetProvisionName(ctx, doc.name); err != nil {
			return err
		}
	} else {
		o.log.Skip("Snapshot carries no controller name")
	}

	if doc.cloud != nil {
		o.log.Step("Restoring cloud settings")
		if err := o.client.SetProvisionCloud(ctx, doc.cloud); err != nil {
			return err
		}
	} else {
		o.log.Skip("Snapshot carries no cloud settings")
	}

	if len(doc.zones) > 0 {
		o.log.Step("Restoring %d zones", len(doc.zones))
		for _, zone := range doc.zones {
			o.log.Debug("Writing zone %d", zone.uid)
			if err := o.client.SetZoneProperties(ctx, zone.uid, zone.raw); err != nil {
				return err
			}
		}
	} else {
		o.log.Skip("Snapshot carries no zones")
	}

	if len(doc.programs) > 0 {
		o.log.Step("Restoring %d programs", len(doc.programs))
		for _, program := range doc.programs {
			o.log.Debug("Writing program %d", program.uid)
			if err := o.client.SetProgram(ctx, program.uid, program.raw); err != nil {
				return err
			}
		}
	} else {
		o.log.Skip("Snapshot carries no programs")
	}

	o.log.Info("Restore complete")
	return nil
}
