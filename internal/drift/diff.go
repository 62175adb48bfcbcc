package drift

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/faucetdb/tibero/internal/model"
)

// DiffTable compares the snapshot of a table against its live reflection
// and classifies each difference as additive or breaking.
func DiffTable(old, live model.Table) TableReport {
	report := TableReport{TableName: old.Name}
	add := func(it Item) {
		it.TableName = old.Name
		report.Items = append(report.Items, it)
	}

	liveByName := make(map[string]model.Column, len(live.Columns))
	for _, col := range live.Columns {
		liveByName[col.Name] = col
	}
	oldByName := make(map[string]model.Column, len(old.Columns))
	for _, col := range old.Columns {
		oldByName[col.Name] = col
	}

	for _, oc := range old.Columns {
		lc, ok := liveByName[oc.Name]
		if !ok {
			add(Item{
				Type:        Breaking,
				Category:    "column_removed",
				ColumnName:  oc.Name,
				OldValue:    oc.DataType,
				Description: fmt.Sprintf("Column %q was removed from table %q", oc.Name, old.Name),
			})
			continue
		}
		if oc.DataType != lc.DataType {
			add(Item{
				Type:        Breaking,
				Category:    "type_changed",
				ColumnName:  oc.Name,
				OldValue:    oc.DataType,
				NewValue:    lc.DataType,
				Description: fmt.Sprintf("Column %q type changed from %q to %q", oc.Name, oc.DataType, lc.DataType),
			})
		}
		switch {
		case oc.Nullable && !lc.Nullable:
			add(Item{
				Type:        Breaking,
				Category:    "nullable_changed",
				ColumnName:  oc.Name,
				OldValue:    "nullable",
				NewValue:    "not null",
				Description: fmt.Sprintf("Column %q changed from nullable to NOT NULL", oc.Name),
			})
		case !oc.Nullable && lc.Nullable:
			add(Item{
				Type:        Additive,
				Category:    "nullable_changed",
				ColumnName:  oc.Name,
				OldValue:    "not null",
				NewValue:    "nullable",
				Description: fmt.Sprintf("Column %q changed from NOT NULL to nullable", oc.Name),
			})
		}
		if od, ld := deref(oc.Default), deref(lc.Default); od != ld {
			add(Item{
				Type:        Additive,
				Category:    "default_changed",
				ColumnName:  oc.Name,
				OldValue:    od,
				NewValue:    ld,
				Description: fmt.Sprintf("Column %q default changed", oc.Name),
			})
		}
	}

	for _, lc := range live.Columns {
		if _, ok := oldByName[lc.Name]; ok {
			continue
		}
		typ := Additive
		if !lc.Nullable && lc.Default == nil && lc.Identity == nil && lc.Computed == nil {
			// Inserts that omit the column now fail.
			typ = Breaking
		}
		add(Item{
			Type:        typ,
			Category:    "column_added",
			ColumnName:  lc.Name,
			NewValue:    lc.DataType,
			Description: fmt.Sprintf("Column %q was added to table %q", lc.Name, old.Name),
		})
	}

	if !slices.Equal(old.PrimaryKey.ConstrainedColumns, live.PrimaryKey.ConstrainedColumns) {
		add(Item{
			Type:        Breaking,
			Category:    "primary_key_changed",
			OldValue:    strings.Join(old.PrimaryKey.ConstrainedColumns, ","),
			NewValue:    strings.Join(live.PrimaryKey.ConstrainedColumns, ","),
			Description: fmt.Sprintf("Primary key of table %q changed", old.Name),
		})
	}

	oldFKs := foreignKeys(old)
	liveFKs := foreignKeys(live)
	for _, sig := range sortedKeys(liveFKs) {
		if _, ok := oldFKs[sig]; !ok {
			add(Item{
				Type:        Breaking,
				Category:    "foreign_key_added",
				NewValue:    sig,
				Description: fmt.Sprintf("Foreign key %s was added to table %q", liveFKs[sig], old.Name),
			})
		}
	}
	for _, sig := range sortedKeys(oldFKs) {
		if _, ok := liveFKs[sig]; !ok {
			add(Item{
				Type:        Additive,
				Category:    "foreign_key_removed",
				OldValue:    sig,
				Description: fmt.Sprintf("Foreign key %s was removed from table %q", oldFKs[sig], old.Name),
			})
		}
	}

	for _, it := range report.Items {
		switch it.Type {
		case Additive:
			report.AdditiveCount++
		case Breaking:
			report.BreakingCount++
		}
	}
	report.HasDrift = len(report.Items) > 0
	report.HasBreaking = report.BreakingCount > 0
	return report
}

// Diff compares every table of the snapshot against the live schema. Tables
// only present live are reported as additive.
func Diff(snap Snapshot, live *model.Schema) Report {
	report := Report{
		Schema:      snap.Schema,
		TakenAt:     snap.TakenAt,
		CheckedAt:   time.Now().UTC(),
		TotalTables: len(snap.Tables),
	}

	liveByName := make(map[string]model.Table)
	for _, t := range live.Tables {
		liveByName[t.Name] = t
	}
	for _, v := range live.Views {
		liveByName[v.Name] = v
	}
	seen := make(map[string]bool, len(snap.Tables))

	for _, old := range snap.Tables {
		seen[old.Name] = true
		lt, ok := liveByName[old.Name]
		if !ok {
			report.Tables = append(report.Tables, TableReport{
				TableName:     old.Name,
				HasDrift:      true,
				HasBreaking:   true,
				BreakingCount: 1,
				Items: []Item{{
					Type:        Breaking,
					Category:    "table_removed",
					TableName:   old.Name,
					Description: fmt.Sprintf("Table %q was removed from the database", old.Name),
				}},
			})
			report.DriftedTables++
			report.BreakingCount++
			continue
		}

		tr := DiffTable(old, lt)
		report.Tables = append(report.Tables, tr)
		if tr.HasDrift {
			report.DriftedTables++
		}
		report.BreakingCount += tr.BreakingCount
	}

	for _, name := range sortedKeys(liveByName) {
		if seen[name] {
			continue
		}
		report.Tables = append(report.Tables, TableReport{
			TableName:     name,
			HasDrift:      true,
			AdditiveCount: 1,
			Items: []Item{{
				Type:        Additive,
				Category:    "table_added",
				TableName:   name,
				Description: fmt.Sprintf("Table %q was added to the database", name),
			}},
		})
		report.DriftedTables++
	}
	return report
}

// foreignKeys indexes foreign keys by what they constrain, ignoring the
// constraint name.
func foreignKeys(t model.Table) map[string]string {
	out := make(map[string]string, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		ref := fk.ReferredTable
		if fk.ReferredSchema != "" {
			ref = fk.ReferredSchema + "." + ref
		}
		sig := fmt.Sprintf("(%s) -> %s(%s)",
			strings.Join(fk.ConstrainedColumns, ","), ref, strings.Join(fk.ReferredColumns, ","))
		out[sig] = fk.Name
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
