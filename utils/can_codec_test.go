package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testMap() *CANMap {
	fd := &FrameDef{
		ID:      0x200,
		Name:    "MPC_CMD_1",
		DLC:     8,
		CycleMS: 50,
		Signals: []SignalDef{
			{Name: "system_enable", StartBit: 0, BitLength: 1, Factor: 1, Min: 0, Max: 1},
			{Name: "steer_cmd_rad", StartBit: 8, BitLength: 16, Signed: true, Factor: 0.0001, Min: -0.5, Max: 0.5},
			{Name: "accel_cmd_norm", StartBit: 24, BitLength: 16, Signed: true, Factor: 0.001, Min: -1, Max: 1},
		},
	}
	return &CANMap{
		ByID:   map[uint32]*FrameDef{fd.ID: fd},
		ByName: map[string]*FrameDef{fd.Name: fd},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := testMap()

	in := map[string]float64{
		"system_enable":  1,
		"steer_cmd_rad":  -0.1234,
		"accel_cmd_norm": 0.75,
	}
	frame, err := m.Encode("MPC_CMD_1", in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if frame.ID != 0x200 || frame.Length != 8 {
		t.Fatalf("frame ID=0x%X len=%d, want 0x200 len 8", frame.ID, frame.Length)
	}

	out, err := m.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for name, want := range in {
		if math.Abs(out[name]-want) > 0.001 {
			t.Errorf("%s = %v, want %v", name, out[name], want)
		}
	}
}

func TestEncodeClampsToSignalRange(t *testing.T) {
	m := testMap()

	frame, err := m.Encode("MPC_CMD_1", map[string]float64{"steer_cmd_rad": 3.0})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := m.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if math.Abs(out["steer_cmd_rad"]-0.5) > 0.001 {
		t.Errorf("steer_cmd_rad = %v, want clamped to 0.5", out["steer_cmd_rad"])
	}
}

func TestEncodeUnknownFrame(t *testing.T) {
	m := testMap()
	if _, err := m.Encode("NOPE", nil); err == nil {
		t.Error("expected error for unknown frame")
	}
}

func TestLoadCANMap(t *testing.T) {
	csv := `direction,frame_id,frame_name,cycle_ms,dlc,signal_name,start_bit,bit_length,endianness,signed,factor,offset,min,max,default,unit,comment
tx,0x200,MPC_CMD_1,50,8,steer_cmd_rad,8,16,little,true,0.0001,0,-0.5,0.5,0,rad,steering
rx,0x300,VEHICLE_POSE_1,20,8,speed_mps,48,16,little,true,0.01,0,-320,320,0,m/s,speed
`
	path := filepath.Join(t.TempDir(), "can_map.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadCANMap(path)
	if err != nil {
		t.Fatalf("LoadCANMap: %v", err)
	}
	if len(m.ByID) != 2 {
		t.Fatalf("got %d frames, want 2", len(m.ByID))
	}
	fd, err := m.FrameByName("MPC_CMD_1")
	if err != nil {
		t.Fatal(err)
	}
	if fd.ID != 0x200 || len(fd.Signals) != 1 {
		t.Errorf("frame ID=0x%X signals=%d, want 0x200/1", fd.ID, len(fd.Signals))
	}
}

func TestLoadCANMapRejectsBigEndian(t *testing.T) {
	csv := `direction,frame_id,frame_name,cycle_ms,dlc,signal_name,start_bit,bit_length,endianness,signed,factor,offset,min,max,default,unit,comment
tx,0x200,MPC_CMD_1,50,8,steer_cmd_rad,8,16,big,true,0.0001,0,-0.5,0.5,0,rad,steering
`
	path := filepath.Join(t.TempDir(), "can_map.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCANMap(path); err == nil {
		t.Error("expected error for big-endian signal")
	}
}
