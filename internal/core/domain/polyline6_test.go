package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibonlg/routeshape/internal/core/domain"
)

// Golden fixtures produced by a Valhalla optimized_route call; expected
// values generated via http://valhalla.github.io/demos/polyline/.
const (
	fixturePennsylvania = "}c|gkAlvkmqCkg@zf@_IbJaP`XoXq^aCwDyByGkAyGI}H?iFZeH`AuFfB}HxBaG~xAiaBtFgHtPqWfCeDpMsNva@px@rRp_@|s@vvAd{@tbBpiAfzBjNuw@lGo`@bAwHz@}I|@cQ^gNf@_OB_NJ}[BeJH{c@X{[SaK_@{S]}Q_@cJUgLAgJ?iUBoB^eMFoA`BsXbLgxAzK_{CpD}oA`@wUlBegAvAmh@fGcr@lGur@zGu]jGeSv@_BdNiYdCaDhHaJx^_[f^}Qre@cXjOgJtJ}HjIqKjEkHzD{HpDaIrB_GvA}EpAoFfAaGlA}H|@yHbAwK~Le{A|@yHv@{Ft@cEfBiHdCsHjCkF|ByDxQaYlE}GrCmEjR{Yp^al@nMgM|C_Fb]_j@xLwR~Ro[`DiElDsD~GmGlNmMpEwDkAwGcDwR_EkUmDuV{CmTiPwaAsc@{kCwL_t@{d@wmCqZkiB{NkcAcGwa@aAgHyJ_t@uI_q@_Kyp@aEgYqBqL}M_v@_Q{n@sVw}@gV{r@kLs\\sCeIqXmw@eFk]W{]dCic@Dw@vIsb@p@gD~Oiw@hAkGtBaLd@gFjAwc@GiGOeKs@ce@i@_HeEci@_@eFyDsh@gEsr@a@eZqAuaAo@cnAb@}JhAwpAnCq|CpCocBHcDZiNrAcp@`Biz@x@}m@bAgl@x@cWrHycAbGyi@tNe~@rAsIjDqTlDwS|G_g@vGyd@fGes@~DynAZ}nAXc~BoGeB}HsIaL}CqMeDmDbBwBe@iF}@wMkCkSuFsA_@"

	fixtureMunich = "czaa{AythgU}K_CgFeAiB]mDq@uRoD_Ca@|@aOb@uHd@eIb@gHh@wI`@cHNmChBa[|Cih@fA_RzB^fm@fK~AVbLlBpHnAvMfCvDt@hMzBrOjCtGfArEz@dJvAdC^bCG@jH~B^bBXjARvZnFzV|EpNjCrRnDpS~D`Dd@bK`BjEp@lCd@jLxBlI~A~F|QT`Ag@~Ga@pEYrCa@fExA`@~IfCzIjCj{@|Up}@hWlTpHpAbB^`C}Czh@}FgBmCy@sOqEwEjb@o@rFoAdLeAa@yIaDcFiBYdC"
)

func TestDecodePolyline6_GoldenPennsylvania(t *testing.T) {
	points, err := domain.DecodePolyline6(fixturePennsylvania)
	require.NoError(t, err)
	require.Len(t, points, 180)

	assert.Equal(t, domain.ShapePoint{Lon: -76.781943, Lat: 39.991887}, points[0])
	assert.Equal(t, domain.ShapePoint{Lon: -76.75789499999999, Lat: 39.978545}, points[100])
	assert.Equal(t, domain.ShapePoint{Lon: -76.707664, Lat: 39.983914}, points[179])
}

func TestDecodePolyline6_GoldenMunich(t *testing.T) {
	points, err := domain.DecodePolyline6(fixtureMunich)
	require.NoError(t, err)
	require.Len(t, points, 71)

	assert.Equal(t, domain.ShapePoint{Lon: 11.670365, Lat: 48.268722}, points[0])
	assert.Equal(t, domain.ShapePoint{Lon: 11.672158, Lat: 48.266073999999996}, points[35])
	assert.Equal(t, domain.ShapePoint{Lon: 11.668334999999999, Lat: 48.262187}, points[70])
}

func TestDecodePolyline6_SinglePoint(t *testing.T) {
	// First two fields of the Munich fixture: one absolute anchor point.
	points, err := domain.DecodePolyline6("czaa{AythgU")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, domain.ShapePoint{Lon: 11.670365, Lat: 48.268722}, points[0])
}

func TestDecodePolyline6_Deterministic(t *testing.T) {
	first, err := domain.DecodePolyline6(fixturePennsylvania)
	require.NoError(t, err)
	second, err := domain.DecodePolyline6(fixturePennsylvania)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDecodePolyline6_EmptyInput(t *testing.T) {
	_, err := domain.DecodePolyline6("")
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestDecodePolyline6_TruncatedField(t *testing.T) {
	// Dropping the final byte leaves the last longitude field without a
	// terminating group; the decoder must reject it rather than emit a
	// short point list.
	_, err := domain.DecodePolyline6(fixturePennsylvania[:len(fixturePennsylvania)-1])
	assert.ErrorIs(t, err, domain.ErrTruncatedField)

	// A lone byte with the continuation bit set is the minimal case.
	_, err = domain.DecodePolyline6("}")
	assert.ErrorIs(t, err, domain.ErrTruncatedField)
}

func TestDecodePolyline6_InvalidCharacter(t *testing.T) {
	// Space (0x20) is below the encoded range.
	_, err := domain.DecodePolyline6("czaa{Ayt hgU")
	assert.ErrorIs(t, err, domain.ErrInvalidCharacter)

	_, err = domain.DecodePolyline6("\x00")
	assert.ErrorIs(t, err, domain.ErrInvalidCharacter)

	// Control bytes embedded mid-stream are rejected, never masked into
	// a field value the way a wrapping subtraction would.
	_, err = domain.DecodePolyline6("czaa{AythgU\x07_C")
	assert.ErrorIs(t, err, domain.ErrInvalidCharacter)
}

func TestDecodePolyline6_CoordinateOutOfRange(t *testing.T) {
	// Encodes latitude 91.0, longitude 0.
	_, err := domain.DecodePolyline6("_keqlD?")
	assert.ErrorIs(t, err, domain.ErrCoordinateOutOfRange)
}
