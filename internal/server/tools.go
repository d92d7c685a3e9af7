package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// regionsProperty is the schema shared by every tool that takes regions.
func regionsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x1":    map[string]interface{}{"type": "integer"},
				"y1":    map[string]interface{}{"type": "integer"},
				"x2":    map[string]interface{}{"type": "integer"},
				"y2":    map[string]interface{}{"type": "integer"},
				"label": map[string]interface{}{"type": "string"},
				"role": map[string]interface{}{
					"type": "string",
					"enum": []string{"measurement", "background"},
				},
			},
			"required": []string{"x1", "y1", "x2", "y2"},
		},
		"description": "Rectangles given by two corner points in frame pixels, any order. Defaults to the regions from the configuration file.",
	}
}

func backgroundIndexProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Index of the region to use as the background reference, or -1 for none. Overrides any roles given in regions.",
	}
}

func manualDeltaProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "L* added to the baseline to form the detection threshold. Defaults to the configured delta.",
	}
}

func pathProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Video Session
		{
			Name:        "video_load",
			Description: "Open a video file (or a directory of image frames) and make it the active video. Drops any frames cached from the previous video.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the video file or image-sequence directory"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "video_info",
			Description: "Get dimensions, frame rate and frame count of the active video.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "cache_stats",
			Description: "Report frame cache occupancy, capacity, hits, misses and evictions.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Frame Navigation
		{
			Name:        "video_frame",
			Description: "Return one frame of the active video as base64 PNG, optionally cropped to a region or with region outlines drawn on it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame": map[string]interface{}{
						"type":        "integer",
						"description": "Frame index (0-based)",
					},
					"crop": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer"},
							"y1": map[string]interface{}{"type": "integer"},
							"x2": map[string]interface{}{"type": "integer"},
							"y2": map[string]interface{}{"type": "integer"},
						},
						"required":    []string{"x1", "y1", "x2", "y2"},
						"description": "Optional region to crop to",
					},
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw region outlines on the frame. Default false",
						"default":     false,
					},
					"regions":          regionsProperty(),
					"background_index": backgroundIndexProperty(),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 0.5 to halve size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"frame"},
			},
		},

		// Measurement
		{
			Name:        "region_stats",
			Description: "Measure L* and blue-channel mean and median for each region in one frame, with and without background thresholding.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"frame": map[string]interface{}{
						"type":        "integer",
						"description": "Frame index (0-based)",
					},
					"regions":          regionsProperty(),
					"background_index": backgroundIndexProperty(),
				},
				"required": []string{"frame"},
			},
		},
		{
			Name:        "video_detect_range",
			Description: "Scan the whole active video and return the first and last frames whose measurement brightness reaches baseline + manual_delta.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"regions":          regionsProperty(),
					"background_index": backgroundIndexProperty(),
					"manual_delta":     manualDeltaProperty(),
					"include_series": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the per-frame brightness and background series. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "video_analyze",
			Description: "Measure every region in every frame of a range and keep the timeseries for export. Defaults to the range found by the last video_detect_range.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start": map[string]interface{}{
						"type":        "integer",
						"description": "First frame (inclusive)",
					},
					"end": map[string]interface{}{
						"type":        "integer",
						"description": "Last frame (inclusive)",
					},
					"regions":          regionsProperty(),
					"background_index": backgroundIndexProperty(),
					"manual_delta":     manualDeltaProperty(),
					"include_samples": map[string]interface{}{
						"type":        "boolean",
						"description": "Include every per-frame sample in the response. Default false",
						"default":     false,
					},
				},
			},
		},

		// Export
		{
			Name:        "video_export_csv",
			Description: "Write the last video_analyze result as CSV, one row per frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path of the CSV file to write"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "video_export_plot",
			Description: "Write the last video_analyze result as a PNG line chart of background-referenced L* per region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path of the PNG file to write"),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
