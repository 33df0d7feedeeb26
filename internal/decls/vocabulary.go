package decls

import (
	"slices"
)

// baseTypes are the qualifiers and types stripped from declaration lines
// before the declared name is isolated.
var baseTypes = []string{
	"const", "unsigned", "static", "int", "void", "double", "float", "char", "short",
	"size_t", "FILE",
	// air, biff, hest
	"airLLong", "airULLong", "airArray", "airEnum", "airHeap", "airFloat", "airRandMTState",
	"airThread", "airThreadMutex", "airThreadCond", "airThreadBarrier",
	"biffMsg", "hestCB", "hestParm", "hestOpt", "gzFile",
	// nrrd
	"NrrdEncoding", "NrrdKernel", "NrrdFormat", "Nrrd", "NrrdRange", "NrrdIoState", "NrrdIter",
	"NrrdResampleContext", "NrrdDeringContext", "NrrdBoundarySpec", "NrrdResampleInfo",
	"NrrdKernelSpec", "unrrduCmd",
	"alanContext", "mossSampler",
	"tijk_type", "tijk_refine_rank1_parm", "tijk_refine_rankk_parm", "tijk_approx_heur_parm",
	// gage
	"gageItemSpec", "gageScl3PFilter_t", "gageKind", "gageItemPack", "gageShape",
	"gagePerVolume", "gageOptimSigContext", "gageStackBlurParm", "gageContext",
	"dyeColor", "dyeConverter",
	"baneRange", "baneInc", "baneClip", "baneMeasr", "baneHVolParm",
	// limn
	"limnLight", "limnCamera", "limnWindow", "limnObject", "limnPolyData",
	"limnSplineTypeSpec", "limnSpline", "limnSplineTypeSpec", "limnPoints", "limnCBFPath",
	// echo
	"echoRTParm", "echoGlobalState", "echoThreadState", "echoScene", "echoObject",
	"_echoRayIntxUV_t", "_echoIntxColor_t",
	// hoover
	"hooverContext", "hooverRenderBegin_t", "hooverThreadBegin_t", "hooverRenderEnd_t",
	"hooverRayBegin_t", "hooverSample_t", "hooverRayEnd_t", "hooverThreadEnd_t",
	"seekContext",
	// ten
	"tenGradientParm", "tenInterpParm", "tenGlyphParm", "tenEstimateContext", "tenEvecRGBParm",
	"tenFiberSingle", "tenFiberContext", "tenFiberMulti", "tenModel", "tenEMBimodalParm",
	"tenExperSpec",
	"elfMaximaContext",
	// pull
	"pullEnergy", "pullEnergySpec", "pullVolume", "pullInfoSpec", "pullContext", "pullTrace",
	"pullTraceMulti", "pullTask", "pullBin", "pullPoint",
	"coilKind", "coilMethod", "coilContext",
	"pushContext", "pushEnergy", "pushEnergySpec", "pushBin", "pushTask", "pushPoint",
	"miteUser", "miteShadeSpec", "miteThread",
	"meetPullVol", "meetPullInfo",
}

// Vocabulary returns the type tokens to strip, longest first. Ties keep list
// order, with extra appended after the built-in list. Longer tokens must go
// first: "int " also occurs inside "pullPoint ".
func Vocabulary(extra ...string) []string {
	out := make([]string, 0, len(baseTypes)+len(extra))
	out = append(out, baseTypes...)
	out = append(out, extra...)
	slices.SortStableFunc(out, func(a, b string) int {
		return len(b) - len(a)
	})
	return out
}
