package model

import "gorm.io/datatypes"

// MetadataValue converts a plain map into the JSON column type
func MetadataValue(m map[string]interface{}) datatypes.JSONMap {
	if m == nil {
		return nil
	}
	return datatypes.JSONMap(m)
}
