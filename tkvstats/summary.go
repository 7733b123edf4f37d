package tkvstats

import (
	"strconv"

	"github.com/carbocation/tkvseg/artifact"
	"gopkg.in/guregu/null.v3"
)

// CombinedModel names the ensemble in StudySummary.Model.
const CombinedModel = "combined_models"

// StudySummary is the per-study result for one model, or for the ensemble.
type StudySummary struct {
	artifact.Attributes

	Model       string
	Slices      int
	TKVGT       float64
	TKVPred     float64
	PatientDice float64
	StudyName   string
	ScaleFactor float64

	// PredStdev is only set for ensembles.
	PredStdev null.Float
}

type Options struct {
	// Binarizer defaults to DefaultBinarizer.
	Binarizer Binarizer
	// Power defaults to 1.
	Power float64
	// Smooth defaults to DefaultSmooth when unset. A valid 0 gives the
	// unsmoothed Dice.
	Smooth null.Float
}

func (o Options) withDefaults() Options {
	if o.Binarizer == nil {
		o.Binarizer = DefaultBinarizer
	}
	if o.Power == 0 {
		o.Power = 1
	}
	if !o.Smooth.Valid {
		o.Smooth = null.FloatFrom(DefaultSmooth)
	}
	return o
}

// Summarize computes Dice and TKV for one prediction volume against ground,
// with scale and voxel volume taken from ref (the study's slice 0).
func Summarize(pred, ground Volume, ref artifact.Attributes, opts Options) (StudySummary, error) {
	opts = opts.withDefaults()

	dice, err := Dice(pred, ground, opts.Binarizer, opts.Power, opts.Smooth.Float64)
	if err != nil {
		return StudySummary{}, err
	}

	scale := ScaleFactor(ref.Dim[0], ref.TransformResizeDim[0])

	return StudySummary{
		Attributes:  ref,
		Slices:      pred.Slices,
		TKVGT:       TKV(scale, ref.VoxelVolume, Count(ground, opts.Binarizer)),
		TKVPred:     TKV(scale, ref.VoxelVolume, Count(pred, opts.Binarizer)),
		PatientDice: dice,
		StudyName:   ref.Patient + ref.Study,
		ScaleFactor: scale,
	}, nil
}

// Row is the CSV form of a StudySummary.
type Row struct {
	Study             string  `csv:"study"`
	Model             string  `csv:"model"`
	Patient           string  `csv:"patient"`
	MR                string  `csv:"MR"`
	SeriesDescription string  `csv:"seq"`
	Slices            int     `csv:"slices"`
	Rows              int     `csv:"dim_rows"`
	Cols              int     `csv:"dim_cols"`
	ResizeRows        int     `csv:"resize_rows"`
	ResizeCols        int     `csv:"resize_cols"`
	VoxelVolume       float64 `csv:"vox_vol"`
	StudyTKV          float64 `csv:"study_tkv"`
	TKVGT             float64 `csv:"TKV_GT"`
	TKVPred           float64 `csv:"TKV_Pred"`
	PatientDice       float64 `csv:"patient_dice"`
	ScaleFactor       float64 `csv:"scale_factor"`
	PredStdev         string  `csv:"Pred_stdev"`
}

func (s StudySummary) Row() Row {
	return Row{
		Study:             s.StudyName,
		Model:             s.Model,
		Patient:           s.Patient,
		MR:                s.Study,
		SeriesDescription: s.SeriesDescription,
		Slices:            s.Slices,
		Rows:              s.Dim[0],
		Cols:              s.Dim[1],
		ResizeRows:        s.TransformResizeDim[0],
		ResizeCols:        s.TransformResizeDim[1],
		VoxelVolume:       s.VoxelVolume,
		StudyTKV:          s.StudyTKV,
		TKVGT:             s.TKVGT,
		TKVPred:           s.TKVPred,
		PatientDice:       s.PatientDice,
		ScaleFactor:       s.ScaleFactor,
		PredStdev:         NullFloatFormatter(s.PredStdev),
	}
}

func NullFloatFormatter(n null.Float) string {
	if !n.Valid {
		return ""
	}

	return strconv.FormatFloat(n.Float64, 'g', -1, 64)
}
