// Package config loads kinetic.yaml.
//
// Values in the file are decoded over defaults, so a file only needs the
// keys it changes. Validation errors carry the file position of the
// offending key.
//
// # Configuration File Structure
//
//	scheduler:
//	  maxFlushPasses: 32
//	  targetFPS: 60
//	  maxDtMs: 100
//	spring:
//	  epsilon: 0.001
//	  presets:
//	    press: {stiffness: 500, damping: 30, mass: 1}
//	metrics:
//	  namespace: kinetic
//	log:
//	  level: debug
//	  format: json
//	inspector:
//	  addr: localhost:7070
//	recorder:
//	  path: kinetic.db
//	  s3Bucket: recordings
//	machines:
//	  - name: button
//	    initial: idle
//	    states: [idle, hovered]
//	    events: [pointer-enter, pointer-leave]
//	    transitions:
//	      - {from: idle, event: pointer-enter, to: hovered}
//	      - {from: hovered, event: pointer-leave, to: idle}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("FPS:", cfg.Scheduler.TargetFPS)
package config
