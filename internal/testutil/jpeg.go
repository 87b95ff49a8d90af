// Package testutil builds small JPEG fixtures with hand-written EXIF blocks.
package testutil

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
)

// EXIF describes the tags written into a fixture. Zero values are omitted.
type EXIF struct {
	Make        string
	Orientation uint16

	// Lat and Long are written as GPS rationals with a hemisphere letter
	Lat  *DMS
	Long *DMS
}

// DMS is a coordinate in whole degrees, minutes and seconds
type DMS struct {
	Deg, Min, Sec uint32
	Ref           string
}

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

const (
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
)

var le = binary.LittleEndian

// JPEG encodes a w x h image whose left half is red and right half blue,
// with x embedded as an APP1 EXIF segment.
func JPEG(w, h int, x EXIF) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			c := color.RGBA{R: 255, A: 255}
			if px >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.Set(px, py, c)
		}
	}

	var enc bytes.Buffer
	if err := jpeg.Encode(&enc, img, &jpeg.Options{Quality: 95}); err != nil {
		panic(err)
	}
	raw := enc.Bytes()

	tiff := buildTIFF(x)
	payload := append([]byte("Exif\x00\x00"), tiff...)

	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write(raw[2:])
	return out.Bytes()
}

func buildTIFF(x EXIF) []byte {
	var ifd0 []entry
	if x.Make != "" {
		ifd0 = append(ifd0, entry{tag: 0x010F, typ: typeASCII, count: uint32(len(x.Make) + 1), data: append([]byte(x.Make), 0)})
	}
	if x.Orientation != 0 {
		ifd0 = append(ifd0, entry{tag: 0x0112, typ: typeShort, count: 1, data: le.AppendUint16(nil, x.Orientation)})
	}

	var gps []entry
	if x.Lat != nil && x.Long != nil {
		gps = []entry{
			{tag: 0x0001, typ: typeASCII, count: 2, data: []byte{x.Lat.Ref[0], 0}},
			{tag: 0x0002, typ: typeRational, count: 3, data: rationals(x.Lat)},
			{tag: 0x0003, typ: typeASCII, count: 2, data: []byte{x.Long.Ref[0], 0}},
			{tag: 0x0004, typ: typeRational, count: 3, data: rationals(x.Long)},
		}
		// placeholder; patched once IFD0's size is known
		ifd0 = append(ifd0, entry{tag: 0x8825, typ: typeLong, count: 1, data: le.AppendUint32(nil, 0)})
	}

	first := encodeIFD(8, ifd0)
	if gps != nil {
		gpsStart := 8 + uint32(len(first))
		ifd0[len(ifd0)-1].data = le.AppendUint32(nil, gpsStart)
		first = encodeIFD(8, ifd0)
		first = append(first, encodeIFD(gpsStart, gps)...)
	}

	out := []byte{'I', 'I', 0x2A, 0x00}
	out = le.AppendUint32(out, 8)
	return append(out, first...)
}

func rationals(d *DMS) []byte {
	var b []byte
	for _, v := range []uint32{d.Deg, d.Min, d.Sec} {
		b = le.AppendUint32(b, v)
		b = le.AppendUint32(b, 1)
	}
	return b
}

func encodeIFD(start uint32, entries []entry) []byte {
	size := uint32(2 + 12*len(entries) + 4)
	dataOff := start + size

	head := le.AppendUint16(nil, uint16(len(entries)))
	var data []byte
	for _, e := range entries {
		head = le.AppendUint16(head, e.tag)
		head = le.AppendUint16(head, e.typ)
		head = le.AppendUint32(head, e.count)
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			head = append(head, v...)
			continue
		}
		head = le.AppendUint32(head, dataOff+uint32(len(data)))
		data = append(data, e.data...)
		if len(data)%2 == 1 {
			data = append(data, 0)
		}
	}
	head = le.AppendUint32(head, 0)
	return append(head, data...)
}
