package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// RFFT computes the real-input FFT of samples, returning fftSize/2+1
// complex coefficients. samples shorter than fftSize are zero-padded;
// longer inputs are truncated to fftSize.
func RFFT(samples []float64, fftSize int) []complex128 {
	in := make([]float64, fftSize)
	copy(in, samples)

	fft := fourier.NewFFT(fftSize)
	return fft.Coefficients(nil, in)
}

// IRFFT inverts RFFT, reconstructing fftSize real samples from its
// complex coefficients. gonum's Sequence is unnormalized (a round trip
// through Coefficients scales by fftSize), so the result is divided by
// fftSize here.
func IRFFT(coeffs []complex128, fftSize int) []float64 {
	fft := fourier.NewFFT(fftSize)
	out := fft.Sequence(nil, coeffs)
	scale := 1 / float64(fftSize)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// Magnitudes converts FFT coefficients to linear magnitudes.
func Magnitudes(coeffs []complex128) []float64 {
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		re, im := real(c), imag(c)
		mags[i] = math.Sqrt(re*re + im*im)
	}
	return mags
}
