package main

import (
	"encoding/json"
	"fmt"
	"os"

	"mpc-drive-core/control"
)

// Scenario defines a complete closed-loop run: the world-frame track, the
// starting pose, the tuning profile and optional CAN output.
type Scenario struct {
	Meta      ScenarioMeta    `json:"meta"`
	Timing    ScenarioTiming  `json:"timing"`
	Profile   string          `json:"profile,omitempty"`
	MPCConfig *control.Config `json:"mpc_config,omitempty"`
	Start     StartPose       `json:"start"`
	Track     Track           `json:"track"`
	CAN       *CANOutput      `json:"can,omitempty"`
}

// ScenarioMeta contains scenario metadata.
type ScenarioMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// ScenarioTiming defines run duration and pacing.
type ScenarioTiming struct {
	DurationS    float64 `json:"duration_s"`
	RealTimeMode bool    `json:"real_time_mode"`
}

// StartPose is the initial world-frame vehicle pose and speed.
type StartPose struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	PsiRad float64 `json:"psi_rad"`
	V      float64 `json:"v"`
}

// Track is the reference path as world-frame waypoints.
type Track struct {
	WaypointsX []float64 `json:"waypoints_x"`
	WaypointsY []float64 `json:"waypoints_y"`
}

// CANOutput enables transmitting the issued command over SocketCAN.
// When PoseFrameName is set, the runner also listens for that frame and
// overrides the simulated pose with bus feedback.
type CANOutput struct {
	Interface     string `json:"interface"`
	MapPath       string `json:"map_path"`
	FrameName     string `json:"frame_name"`
	PoseFrameName string `json:"pose_frame_name,omitempty"`
}

// LoadScenario loads and validates a scenario from a JSON file, resolving
// the tuning profile into a full controller configuration.
func LoadScenario(path string) (Scenario, control.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, control.Config{}, fmt.Errorf("read file: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return Scenario{}, control.Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	if scen.Timing.DurationS <= 0 {
		return Scenario{}, control.Config{}, fmt.Errorf("invalid duration_s: %f", scen.Timing.DurationS)
	}
	if len(scen.Track.WaypointsX) != len(scen.Track.WaypointsY) {
		return Scenario{}, control.Config{}, fmt.Errorf("track has %d x waypoints but %d y waypoints",
			len(scen.Track.WaypointsX), len(scen.Track.WaypointsY))
	}
	if len(scen.Track.WaypointsX) < 4 {
		return Scenario{}, control.Config{}, fmt.Errorf("track needs at least 4 waypoints, got %d",
			len(scen.Track.WaypointsX))
	}
	if scen.CAN != nil {
		if scen.CAN.Interface == "" || scen.CAN.MapPath == "" || scen.CAN.FrameName == "" {
			return Scenario{}, control.Config{}, fmt.Errorf("can output requires interface, map_path and frame_name")
		}
	}

	// An explicit mpc_config overrides the named profile entirely.
	var cfg control.Config
	if scen.MPCConfig != nil {
		cfg = *scen.MPCConfig
	} else {
		cfg, err = control.ProfileByName(scen.Profile)
		if err != nil {
			return Scenario{}, control.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Scenario{}, control.Config{}, fmt.Errorf("scenario %s: %w", scen.Meta.Name, err)
	}

	return scen, cfg, nil
}
