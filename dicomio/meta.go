package dicomio

import (
	"fmt"

	"github.com/carbocation/tkvseg"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Meta holds the subset of DICOM header fields that indexing, slice ordering
// and ingress need.
type Meta struct {
	PatientID         string
	StudyInstanceUID  string
	SeriesDescription string
	AccessionNumber   string
	SeriesNumber      string
	Rows              int
	Cols              int

	// PixelSpacing is [row, col] in mm.
	PixelSpacing   [2]float64
	SliceThickness float64

	// Z is the third component of ImagePositionPatient. HasZ is false when
	// the tag is missing or malformed.
	Z    float64
	HasZ bool
}

// ReadMeta parses the header of the DICOM at path (local or gs://) in a
// single pass, skipping pixel data. Failures are DecodeErrors.
func ReadMeta(path string) (Meta, error) {
	ds, err := safelyParse(path, dicom.SkipPixelData())
	if err != nil {
		return Meta{}, &tkvseg.DecodeError{Path: path, Err: err}
	}

	m, err := MetaFromDataset(ds)
	if err != nil {
		return Meta{}, &tkvseg.DecodeError{Path: path, Err: err}
	}

	return m, nil
}

// MetaFromDataset extracts Meta from an already parsed dataset. Rows and
// Columns are required. Spacing and thickness default to zero when absent.
func MetaFromDataset(ds dicom.Dataset) (Meta, error) {
	output := Meta{
		PatientID:         firstString(ds, tag.PatientID),
		StudyInstanceUID:  firstString(ds, tag.StudyInstanceUID),
		SeriesDescription: firstString(ds, tag.SeriesDescription),
		AccessionNumber:   firstString(ds, tag.AccessionNumber),
		SeriesNumber:      firstString(ds, tag.SeriesNumber),
	}

	var ok bool
	if output.Rows, ok = firstInt(ds, tag.Rows); !ok {
		return output, fmt.Errorf("no Rows element")
	}
	if output.Cols, ok = firstInt(ds, tag.Columns); !ok {
		return output, fmt.Errorf("no Columns element")
	}

	if spacing, ok := decimals(ds, tag.PixelSpacing); ok {
		output.PixelSpacing[0] = spacing[0]
		if len(spacing) > 1 {
			output.PixelSpacing[1] = spacing[1]
		} else {
			output.PixelSpacing[1] = spacing[0]
		}
	}

	if thickness, ok := decimals(ds, tag.SliceThickness); ok {
		output.SliceThickness = thickness[0]
	}

	if pos, ok := decimals(ds, tag.ImagePositionPatient); ok && len(pos) == 3 {
		output.Z = pos[2]
		output.HasZ = true
	}

	return output, nil
}

// VoxelVolume is spacing[0]·spacing[1]·thickness, in mm³.
func (m Meta) VoxelVolume() float64 {
	return m.PixelSpacing[0] * m.PixelSpacing[1] * m.SliceThickness
}
