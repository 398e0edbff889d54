// Package recorder captures frames of a kinetic runtime for later replay
// and comparison.
//
// A Recorder samples the runtime after every tick and writes the samples
// in batches to a Store. Two stores are provided: BoltStore keeps sessions
// in a local bbolt file and S3Store uploads them as JSON-lines chunks.
//
//	store, err := recorder.OpenBolt("kinetic.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	rec := recorder.New(store)
//	rt.OnFrame(rec.Observer(rt))
//	...
//	err = rec.Close(ctx)
//
// Recordings of the same scripted input are identical, which Compare uses
// to detect nondeterminism between builds.
package recorder
