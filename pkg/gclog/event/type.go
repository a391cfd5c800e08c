package event

import (
	"maps"
	"slices"
)

// Type identifies the kind of GC event.
type Type string

// Category groups event types by the collector family (or auxiliary source)
// that produces them. Consumers are registered per category.
type Category string

// Event categories.
const (
	CategoryGenerational Category = "generational"
	CategoryTenured      Category = "tenured"
	CategoryG1           Category = "g1"
	CategoryZGC          Category = "zgc"
	CategoryShenandoah   Category = "shenandoah"
	CategorySurvivor     Category = "survivor"
	CategorySafepoint    Category = "safepoint"
	CategoryJVM          Category = "jvm"
	CategoryCustom       Category = "custom"
)

// Categories lists every built-in category.
var Categories = []Category{
	CategoryGenerational,
	CategoryTenured,
	CategoryG1,
	CategoryZGC,
	CategoryShenandoah,
	CategorySurvivor,
	CategorySafepoint,
	CategoryJVM,
	CategoryCustom,
}

// Generational collector events. YoungGC is a young collection logged
// without the name of its collector.
const (
	YoungGC                   Type = "young_gc"
	DefNew                    Type = "def_new"
	ParNew                    Type = "par_new"
	PSYoungGen                Type = "ps_young_gen"
	ParNewPromotionFailed     Type = "par_new_promotion_failed"
	FullGC                    Type = "full_gc"
	PSFullGC                  Type = "ps_full_gc"
	SystemGC                  Type = "system_gc"
	ConcurrentModeFailure     Type = "concurrent_mode_failure"
	ConcurrentModeInterrupted Type = "concurrent_mode_interrupted"
)

// Concurrent mark-sweep tenured pool events.
const (
	CMSInitialMark        Type = "cms_initial_mark"
	CMSRemark             Type = "cms_remark"
	CMSConcurrentMark     Type = "cms_concurrent_mark"
	CMSConcurrentPreclean Type = "cms_concurrent_preclean"
	CMSAbortablePreclean  Type = "cms_abortable_preclean"
	CMSConcurrentSweep    Type = "cms_concurrent_sweep"
	CMSConcurrentReset    Type = "cms_concurrent_reset"
)

// G1 events.
const (
	G1Young                       Type = "g1_young"
	G1Mixed                       Type = "g1_mixed"
	G1YoungInitialMark            Type = "g1_young_initial_mark"
	G1Remark                      Type = "g1_remark"
	G1Cleanup                     Type = "g1_cleanup"
	G1FullGC                      Type = "g1_full_gc"
	G1ConcurrentCycle             Type = "g1_concurrent_cycle"
	G1ConcurrentClearClaimedMarks Type = "g1_concurrent_clear_claimed_marks"
	G1ConcurrentScanRootRegions   Type = "g1_concurrent_scan_root_regions"
	G1ConcurrentMark              Type = "g1_concurrent_mark"
	G1ConcurrentMarkAbort         Type = "g1_concurrent_mark_abort"
	G1ConcurrentRebuildRemSets    Type = "g1_concurrent_rebuild_remembered_sets"
	G1ConcurrentCleanup           Type = "g1_concurrent_cleanup"
	G1ConcurrentUndoCycle         Type = "g1_concurrent_undo_cycle"
	G1ConcurrentCreateLiveData    Type = "g1_concurrent_create_live_data"
	G1ConcurrentMarkResetOverflow Type = "g1_concurrent_mark_reset_for_overflow"
)

// ZGC events.
const (
	ZGCCycle           Type = "zgc_cycle"
	ZGCAllocationStall Type = "zgc_allocation_stall"
)

// Shenandoah events.
const (
	ShenandoahInitMark             Type = "shenandoah_init_mark"
	ShenandoahFinalMark            Type = "shenandoah_final_mark"
	ShenandoahInitUpdateRefs       Type = "shenandoah_init_update_refs"
	ShenandoahFinalUpdateRefs      Type = "shenandoah_final_update_refs"
	ShenandoahFull                 Type = "shenandoah_full"
	ShenandoahDegenerated          Type = "shenandoah_degenerated"
	ShenandoahConcurrentMark       Type = "shenandoah_concurrent_mark"
	ShenandoahConcurrentEvacuation Type = "shenandoah_concurrent_evacuation"
	ShenandoahConcurrentUpdateRefs Type = "shenandoah_concurrent_update_refs"
	ShenandoahConcurrentCleanup    Type = "shenandoah_concurrent_cleanup"
	ShenandoahConcurrentReset      Type = "shenandoah_concurrent_reset"
	ShenandoahConcurrentRootsMark  Type = "shenandoah_concurrent_roots"
	ShenandoahConcurrentWeakRefs   Type = "shenandoah_concurrent_weak_refs"
)

// Auxiliary events.
const (
	SurvivorRecord            Type = "survivor_record"
	ApplicationStoppedTime    Type = "application_stopped_time"
	ApplicationConcurrentTime Type = "application_concurrent_time"
	Safepoint                 Type = "safepoint"
	JVMTermination            Type = "jvm_termination"
)

type typeInfo struct {
	category Category
	pause    bool
}

var typeTable = map[Type]typeInfo{
	YoungGC:                   {CategoryGenerational, true},
	DefNew:                    {CategoryGenerational, true},
	ParNew:                    {CategoryGenerational, true},
	PSYoungGen:                {CategoryGenerational, true},
	ParNewPromotionFailed:     {CategoryGenerational, true},
	FullGC:                    {CategoryGenerational, true},
	PSFullGC:                  {CategoryGenerational, true},
	SystemGC:                  {CategoryGenerational, true},
	ConcurrentModeFailure:     {CategoryGenerational, true},
	ConcurrentModeInterrupted: {CategoryGenerational, true},

	CMSInitialMark:        {CategoryTenured, true},
	CMSRemark:             {CategoryTenured, true},
	CMSConcurrentMark:     {CategoryTenured, false},
	CMSConcurrentPreclean: {CategoryTenured, false},
	CMSAbortablePreclean:  {CategoryTenured, false},
	CMSConcurrentSweep:    {CategoryTenured, false},
	CMSConcurrentReset:    {CategoryTenured, false},

	G1Young:                       {CategoryG1, true},
	G1Mixed:                       {CategoryG1, true},
	G1YoungInitialMark:            {CategoryG1, true},
	G1Remark:                      {CategoryG1, true},
	G1Cleanup:                     {CategoryG1, true},
	G1FullGC:                      {CategoryG1, true},
	G1ConcurrentCycle:             {CategoryG1, false},
	G1ConcurrentClearClaimedMarks: {CategoryG1, false},
	G1ConcurrentScanRootRegions:   {CategoryG1, false},
	G1ConcurrentMark:              {CategoryG1, false},
	G1ConcurrentMarkAbort:         {CategoryG1, false},
	G1ConcurrentRebuildRemSets:    {CategoryG1, false},
	G1ConcurrentCleanup:           {CategoryG1, false},
	G1ConcurrentUndoCycle:         {CategoryG1, false},
	G1ConcurrentCreateLiveData:    {CategoryG1, false},
	G1ConcurrentMarkResetOverflow: {CategoryG1, false},

	ZGCCycle:           {CategoryZGC, false},
	ZGCAllocationStall: {CategoryZGC, false},

	ShenandoahInitMark:             {CategoryShenandoah, true},
	ShenandoahFinalMark:            {CategoryShenandoah, true},
	ShenandoahInitUpdateRefs:       {CategoryShenandoah, true},
	ShenandoahFinalUpdateRefs:      {CategoryShenandoah, true},
	ShenandoahFull:                 {CategoryShenandoah, true},
	ShenandoahDegenerated:          {CategoryShenandoah, true},
	ShenandoahConcurrentMark:       {CategoryShenandoah, false},
	ShenandoahConcurrentEvacuation: {CategoryShenandoah, false},
	ShenandoahConcurrentUpdateRefs: {CategoryShenandoah, false},
	ShenandoahConcurrentCleanup:    {CategoryShenandoah, false},
	ShenandoahConcurrentReset:      {CategoryShenandoah, false},
	ShenandoahConcurrentRootsMark:  {CategoryShenandoah, false},
	ShenandoahConcurrentWeakRefs:   {CategoryShenandoah, false},

	SurvivorRecord:            {CategorySurvivor, false},
	ApplicationStoppedTime:    {CategorySafepoint, true},
	ApplicationConcurrentTime: {CategorySafepoint, false},
	Safepoint:                 {CategorySafepoint, true},
	JVMTermination:            {CategoryJVM, false},
}

// Category returns the category the type belongs to. Types that are not
// built in (custom pattern events) belong to CategoryCustom.
func (t Type) Category() Category {
	if info, ok := typeTable[t]; ok {
		return info.category
	}
	return CategoryCustom
}

// IsPause reports whether events of this type stop application threads.
func (t Type) IsPause() bool {
	return typeTable[t].pause
}

// IsBuiltin reports whether t is one of the types defined by this package.
func (t Type) IsBuiltin() bool {
	_, ok := typeTable[t]
	return ok
}

// Types returns every built-in type, sorted by name.
func Types() []Type {
	return slices.Sorted(maps.Keys(typeTable))
}
