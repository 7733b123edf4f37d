// Package dicomiotest writes small synthetic MR slices for tests.
package dicomiotest

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Slice describes one synthetic DICOM. Pix must hold Rows*Cols values, or be
// nil for an all-zero frame.
type Slice struct {
	PatientID         string
	SeriesDescription string
	SeriesNumber      int
	AccessionNumber   string
	Rows, Cols        int
	PixelSpacing      [2]float64
	SliceThickness    float64

	// Z is written to ImagePositionPatient unless NoZ is set.
	Z   float64
	NoZ bool

	Pix []uint16
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// Write creates path and writes s as an explicit little endian DICOM.
func Write(path string, s Slice) error {
	number := s.SeriesNumber
	if number == 0 {
		number = 1
	}

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNewElement(tag.SOPInstanceUID, []string{fmt.Sprintf("1.2.826.0.1.3680043.8.498.%d", os.Getpid())}),
		mustNewElement(tag.PatientID, []string{s.PatientID}),
		mustNewElement(tag.SeriesNumber, []string{fmt.Sprintf("%d", number)}),
		mustNewElement(tag.SeriesDescription, []string{s.SeriesDescription}),
		mustNewElement(tag.AccessionNumber, []string{s.AccessionNumber}),
		mustNewElement(tag.PixelSpacing, []string{
			fmt.Sprintf("%.6f", s.PixelSpacing[0]),
			fmt.Sprintf("%.6f", s.PixelSpacing[1]),
		}),
		mustNewElement(tag.SliceThickness, []string{fmt.Sprintf("%.6f", s.SliceThickness)}),
	}

	if !s.NoZ {
		elements = append(elements, mustNewElement(tag.ImagePositionPatient, []string{
			"-100.000000", "-100.000000", fmt.Sprintf("%.6f", s.Z),
		}))
	}

	elements = append(elements,
		mustNewElement(tag.Rows, []int{s.Rows}),
		mustNewElement(tag.Columns, []int{s.Cols}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{16}),
		mustNewElement(tag.HighBit, []int{15}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
	)

	nativeFrame := frame.NewNativeFrame[uint16](16, s.Rows, s.Cols, s.Rows*s.Cols, 1)
	copy(nativeFrame.RawData, s.Pix)

	elements = append(elements, mustNewElement(tag.PixelData, dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return dicom.Write(f, dicom.Dataset{Elements: elements})
}
