package snapshot

import (
	"fmt"
	"reflect"
)

// Diff produces a recursive JSON diff between two decoded JSON values
// (typically map[string]interface{} / []interface{} trees produced by
// json.Unmarshal into interface{}). Each leaf-level difference becomes one
// DiffChange.
func Diff(oldState, newState interface{}) []DiffChange {
	var changes []DiffChange
	diffValue("", oldState, newState, &changes)
	return changes
}

func diffValue(path string, oldV, newV interface{}, changes *[]DiffChange) {
	if oldV == nil && newV == nil {
		return
	}
	if oldV == nil {
		*changes = append(*changes, DiffChange{Path: path, ChangeType: ChangeAdded, New: newV})
		return
	}
	if newV == nil {
		*changes = append(*changes, DiffChange{Path: path, ChangeType: ChangeRemoved, Old: oldV})
		return
	}

	oldMap, oldIsMap := oldV.(map[string]interface{})
	newMap, newIsMap := newV.(map[string]interface{})
	if oldIsMap && newIsMap {
		diffMaps(path, oldMap, newMap, changes)
		return
	}

	oldSlice, oldIsSlice := oldV.([]interface{})
	newSlice, newIsSlice := newV.([]interface{})
	if oldIsSlice && newIsSlice {
		diffSlices(path, oldSlice, newSlice, changes)
		return
	}

	if !reflect.DeepEqual(oldV, newV) {
		*changes = append(*changes, DiffChange{Path: path, ChangeType: ChangeModified, Old: oldV, New: newV})
	}
}

func diffMaps(path string, oldMap, newMap map[string]interface{}, changes *[]DiffChange) {
	for k, oldV := range oldMap {
		childPath := joinPath(path, k)
		newV, ok := newMap[k]
		if !ok {
			*changes = append(*changes, DiffChange{Path: childPath, ChangeType: ChangeRemoved, Old: oldV})
			continue
		}
		diffValue(childPath, oldV, newV, changes)
	}
	for k, newV := range newMap {
		if _, ok := oldMap[k]; !ok {
			*changes = append(*changes, DiffChange{Path: joinPath(path, k), ChangeType: ChangeAdded, New: newV})
		}
	}
}

func diffSlices(path string, oldSlice, newSlice []interface{}, changes *[]DiffChange) {
	maxLen := len(oldSlice)
	if len(newSlice) > maxLen {
		maxLen = len(newSlice)
	}
	for i := 0; i < maxLen; i++ {
		childPath := fmt.Sprintf("%s[%d]", path, i)
		switch {
		case i >= len(oldSlice):
			*changes = append(*changes, DiffChange{Path: childPath, ChangeType: ChangeAdded, New: newSlice[i]})
		case i >= len(newSlice):
			*changes = append(*changes, DiffChange{Path: childPath, ChangeType: ChangeRemoved, Old: oldSlice[i]})
		default:
			diffValue(childPath, oldSlice[i], newSlice[i], changes)
		}
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
